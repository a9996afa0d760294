package analytics

import (
	"context"
	"sort"
	"time"
)

// topContentLimit bounds the ranked list in Summary.TopContent.
const topContentLimit = 10

// GetSummary computes the dashboard summary over the given window. The
// range is validated before the store is touched; store failures propagate
// to the caller (the dashboard shows a retry state, unlike the write path
// which swallows errors).
func GetSummary(ctx context.Context, s Store, r DateRange) (*Summary, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	events, err := s.EventsInRange(ctx, r)
	if err != nil {
		return nil, err
	}
	return Summarize(events), nil
}

// GetContentAnalytics computes per-item numbers for one page type over the
// given window. The full ranked list is returned; callers decide how many
// entries to display.
func GetContentAnalytics(ctx context.Context, s Store, pageType string, r DateRange) ([]ContentAnalytics, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	events, err := s.EventsByType(ctx, pageType, r)
	if err != nil {
		return nil, err
	}
	return RankContent(events), nil
}

// contentKey identifies one content item across events.
type contentKey struct {
	pageType string
	pageID   string
}

// titlePick tracks the last-write-wins title for a content item. When the
// same item was recorded under different titles (edited between views), the
// most recently recorded event's title takes precedence; equal timestamps
// are broken by event ID, which for ULIDs approximates insertion order.
type titlePick struct {
	set   bool
	title string
	when  time.Time
	id    string
}

func (p *titlePick) consider(e PageViewEvent) {
	if !p.set || e.ViewedAt.After(p.when) ||
		(e.ViewedAt.Equal(p.when) && e.ID > p.id) {
		p.set = true
		p.title = e.PageTitle
		p.when = e.ViewedAt
		p.id = e.ID
	}
}

// Summarize aggregates a set of events into a Summary. It is a pure
// function of its input so it can be exercised without a store or UI.
func Summarize(events []PageViewEvent) *Summary {
	sum := &Summary{
		TotalViews:        len(events),
		PageTypeBreakdown: make(map[string]int),
		TopContent:        []TopContent{},
		DailyTrends:       make(map[string]int),
		ReferrerBreakdown: make(map[string]int),
	}

	sessions := make(map[string]struct{})
	views := make(map[contentKey]int)
	titles := make(map[contentKey]*titlePick)

	for _, e := range events {
		sessions[e.SessionID] = struct{}{}
		sum.PageTypeBreakdown[e.PageType]++
		sum.DailyTrends[dayKey(e.ViewedAt)]++
		sum.ReferrerBreakdown[referrerBucket(e.Referrer)]++

		if e.PageID == "" {
			continue
		}
		key := contentKey{pageType: e.PageType, pageID: e.PageID}
		views[key]++
		pick, ok := titles[key]
		if !ok {
			pick = &titlePick{}
			titles[key] = pick
		}
		pick.consider(e)
	}
	sum.UniqueSessions = len(sessions)

	ranked := make([]TopContent, 0, len(views))
	for key, count := range views {
		ranked = append(ranked, TopContent{
			PageType: key.pageType,
			PageID:   key.pageID,
			Title:    titles[key].title,
			Views:    count,
		})
	}
	// Descending by views; ties broken by (page_type, page_id) ascending so
	// the ranking is deterministic.
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Views != ranked[j].Views {
			return ranked[i].Views > ranked[j].Views
		}
		if ranked[i].PageType != ranked[j].PageType {
			return ranked[i].PageType < ranked[j].PageType
		}
		return ranked[i].PageID < ranked[j].PageID
	})
	if len(ranked) > topContentLimit {
		ranked = ranked[:topContentLimit]
	}
	sum.TopContent = ranked

	return sum
}

// RankContent groups events of a single page type by page_id and returns
// the full ranked list. Events without a page_id are ignored; the store
// already filters them out, this keeps the function safe on raw input.
func RankContent(events []PageViewEvent) []ContentAnalytics {
	views := make(map[string]int)
	viewers := make(map[string]map[string]struct{})
	titles := make(map[string]*titlePick)

	for _, e := range events {
		if e.PageID == "" {
			continue
		}
		views[e.PageID]++
		set, ok := viewers[e.PageID]
		if !ok {
			set = make(map[string]struct{})
			viewers[e.PageID] = set
		}
		set[e.SessionID] = struct{}{}
		pick, ok := titles[e.PageID]
		if !ok {
			pick = &titlePick{}
			titles[e.PageID] = pick
		}
		pick.consider(e)
	}

	ranked := make([]ContentAnalytics, 0, len(views))
	for id, count := range views {
		ranked = append(ranked, ContentAnalytics{
			ID:            id,
			Title:         titles[id].title,
			TotalViews:    count,
			UniqueViewers: len(viewers[id]),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalViews != ranked[j].TotalViews {
			return ranked[i].TotalViews > ranked[j].TotalViews
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
