package render

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/prasetyowira/qrgen/constant"
	"github.com/prasetyowira/qrgen/domain/download"
	"github.com/prasetyowira/qrgen/domain/history"
	"github.com/prasetyowira/qrgen/infrastructure/logger"
	"github.com/sahilm/fuzzy"
)

// ActionKind names what an action binding does
type ActionKind string

const (
	ActionDownload ActionKind = "download"
	ActionDelete   ActionKind = "delete"
)

// Action binds one history position to an operation. Bindings are rebuilt
// on every render, so the index always refers to the list that was shown.
type Action struct {
	Kind     ActionKind `json:"kind" yaml:"kind"`
	Index    int        `json:"index" yaml:"index"`
	RecordID string     `json:"record_id,omitempty" yaml:"record_id,omitempty"`
}

// Entry is the display form of one history record
type Entry struct {
	Index        int      `json:"index" yaml:"index"`
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url" yaml:"thumbnail_url"`
	URL          string   `json:"url" yaml:"url"`
	Label        string   `json:"label" yaml:"label"`
	Date         string   `json:"date" yaml:"date"`
	Timestamp    string   `json:"timestamp" yaml:"timestamp"`
	Size         int      `json:"size" yaml:"size"`
	Actions      []Action `json:"actions" yaml:"actions"`
}

// View is a full rendering of the history grid
type View struct {
	Entries      []Entry `json:"entries" yaml:"entries"`
	Total        int     `json:"total" yaml:"total"`
	Query        string  `json:"query,omitempty" yaml:"query,omitempty"`
	Empty        bool    `json:"empty" yaml:"empty"`
	NoMatches    bool    `json:"no_matches,omitempty" yaml:"no_matches,omitempty"`
	EmptyMessage string  `json:"empty_message,omitempty" yaml:"empty_message,omitempty"`
}

// Outcome is the result of performing an action
type Outcome struct {
	View     *View            `json:"view" yaml:"view"`
	Download *download.Result `json:"download,omitempty" yaml:"download,omitempty"`
	Message  string           `json:"message" yaml:"message"`
}

// HistoryStore is what the renderer needs from the history store
type HistoryStore interface {
	List(ctx context.Context) ([]history.Record, error)
	Get(ctx context.Context, index int) (history.Record, error)
	RemoveAtMatching(ctx context.Context, index int, id string) error
}

// Downloader fetches an image and hands it to a saver
type Downloader interface {
	Download(ctx context.Context, imageURL, prefix string, saver download.Saver) (*download.Result, error)
}

// Renderer projects the history store into views and runs their actions
type Renderer struct {
	history    HistoryStore
	downloader Downloader
	prefix     string
}

// NewRenderer creates a renderer. prefix is used for download filenames.
func NewRenderer(store HistoryStore, downloader Downloader, prefix string) *Renderer {
	if prefix == "" {
		prefix = constant.DefaultDownloadPrefix
	}
	return &Renderer{
		history:    store,
		downloader: downloader,
		prefix:     prefix,
	}
}

// Truncate shortens s to maxLen runes, replacing the tail with "..." when
// it does not fit.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Render reads the current history and builds a view of it. A non-empty
// query keeps only entries whose URL fuzzily matches it; kept entries retain
// their position in the full history.
func (r *Renderer) Render(ctx context.Context, query string) (*View, error) {
	records, err := r.history.List(ctx)
	if err != nil {
		return nil, err
	}

	view := &View{
		Entries: []Entry{},
		Total:   len(records),
		Query:   strings.TrimSpace(query),
	}

	for _, index := range r.visible(records, view.Query) {
		view.Entries = append(view.Entries, newEntry(index, records[index]))
	}

	switch {
	case len(records) == 0:
		view.Empty = true
		view.EmptyMessage = constant.EmptyHistoryText
	case len(view.Entries) == 0:
		view.NoMatches = true
		view.EmptyMessage = constant.NoMatchesText
	}

	logger.CtxDebug(ctx, "History rendered", logger.LoggerInfo{
		ContextFunction: constant.CtxRender,
		Data: map[string]interface{}{
			constant.DataCount: len(view.Entries),
			constant.DataQuery: view.Query,
		},
	})
	return view, nil
}

func (r *Renderer) visible(records []history.Record, query string) []int {
	if query == "" {
		indices := make([]int, len(records))
		for i := range records {
			indices[i] = i
		}
		return indices
	}

	sources := make([]string, len(records))
	for i, rec := range records {
		sources[i] = rec.URL
	}
	matches := fuzzy.Find(query, sources)

	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		indices = append(indices, m.Index)
	}
	sort.Ints(indices)
	return indices
}

func newEntry(index int, rec history.Record) Entry {
	return Entry{
		Index:        index,
		ID:           rec.ID,
		ThumbnailURL: rec.ImageRequestURL,
		URL:          rec.URL,
		Label:        Truncate(rec.URL, constant.LabelMaxLength),
		Date:         rec.DisplayDate,
		Timestamp:    rec.Timestamp,
		Size:         rec.Size,
		Actions: []Action{
			{Kind: ActionDownload, Index: index, RecordID: rec.ID},
			{Kind: ActionDelete, Index: index, RecordID: rec.ID},
		},
	}
}

// Perform runs action against the current history and returns a freshly
// rendered view. saver is only used by download actions.
func (r *Renderer) Perform(ctx context.Context, action Action, saver download.Saver) (*Outcome, error) {
	logger.CtxDebug(ctx, "Performing history action", logger.LoggerInfo{
		ContextFunction: constant.CtxPerform,
		Data: map[string]interface{}{
			constant.DataAction:   string(action.Kind),
			constant.DataIndex:    action.Index,
			constant.DataRecordID: action.RecordID,
		},
	})

	outcome := &Outcome{}
	switch action.Kind {
	case ActionDelete:
		if err := r.history.RemoveAtMatching(ctx, action.Index, action.RecordID); err != nil {
			return nil, err
		}
		outcome.Message = constant.MsgHistoryItemDeleted

	case ActionDownload:
		rec, err := r.history.Get(ctx, action.Index)
		if err != nil {
			return nil, err
		}
		if action.RecordID != "" && rec.ID != "" && rec.ID != action.RecordID {
			return nil, fmt.Errorf("%w: index %d", history.ErrStaleIndex, action.Index)
		}
		// rec is a copy, so later history changes cannot affect this download
		result, err := r.downloader.Download(ctx, rec.ImageRequestURL, r.prefix, saver)
		if err != nil {
			return nil, err
		}
		outcome.Download = result
		outcome.Message = constant.MsgDownloadSucceeded

	default:
		return nil, fmt.Errorf("unknown history action %q", action.Kind)
	}

	view, err := r.Render(ctx, "")
	if err != nil {
		return nil, err
	}
	outcome.View = view
	return outcome, nil
}
