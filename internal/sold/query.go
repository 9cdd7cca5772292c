package sold

import (
	"context"
	"encoding/json"

	"github.com/tair/stock-ledger/internal/domain"
	"github.com/tair/stock-ledger/internal/session"
	"github.com/tair/stock-ledger/internal/warranty"
)

// Filter narrows List. Zero values match everything. A nil Thresholds uses
// warranty.DefaultThresholds.
type Filter struct {
	Query      string
	Status     warranty.Status
	Thresholds *warranty.Thresholds
}

// Record is a sale with its warranty state as of the session clock
type Record struct {
	domain.SoldItem
	Warranty warranty.Result `json:"warranty"`
}

// UnmarshalJSON decodes the item leniently and then the warranty. Without it the
// embedded item's decoder would be promoted and drop the warranty.
func (r *Record) UnmarshalJSON(data []byte) error {
	if err := r.SoldItem.UnmarshalJSON(data); err != nil {
		return err
	}
	var aux struct {
		Warranty warranty.Result `json:"warranty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Warranty = aux.Warranty
	return nil
}

// List returns sales matching f, in stored order. Warranty state is recomputed on
// every call.
func (l *Ledger) List(ctx context.Context, sess *session.Session, f Filter) ([]Record, error) {
	items, err := l.load(ctx, sess)
	if err != nil {
		return nil, err
	}

	th := f.Thresholds.Or(warranty.DefaultThresholds)
	now := sess.Now()

	records := []Record{}
	for _, item := range items {
		if !item.Matches(f.Query) {
			continue
		}
		res := warranty.ForItem(item, now, th)
		if f.Status != "" && res.Status != f.Status {
			continue
		}
		records = append(records, Record{SoldItem: item, Warranty: res})
	}
	return records, nil
}
