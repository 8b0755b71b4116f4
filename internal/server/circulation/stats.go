package circulation

import (
	"context"

	"github.com/dmitrijs2005/libcirc/internal/server/models"
)

// Stats is the aggregate snapshot behind the admin getStats action.
type Stats struct {
	TotalBooks      int `json:"totalBooks"`
	TotalCopies     int `json:"totalCopies"`
	AvailableCopies int `json:"availableCopies"`
	ActiveUsers     int `json:"activeUsers"`
	ActiveBorrows   int `json:"activeBorrows"`
	OverdueBorrows  int `json:"overdueBorrows"`
	PendingFines    int `json:"pendingFines"`
}

func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	var err error

	if st.TotalBooks, err = e.store.Books().Count(ctx); err != nil {
		return nil, err
	}
	if st.TotalCopies, err = e.store.Copies().Count(ctx); err != nil {
		return nil, err
	}
	if st.AvailableCopies, err = e.store.Copies().CountByStatus(ctx, models.CopyAvailable); err != nil {
		return nil, err
	}
	if st.ActiveUsers, err = e.store.Identities().CountActive(ctx); err != nil {
		return nil, err
	}
	if st.ActiveBorrows, err = e.store.Records().CountByStatus(ctx, models.RecordBorrowed); err != nil {
		return nil, err
	}
	if st.OverdueBorrows, err = e.store.Records().CountByStatus(ctx, models.RecordOverdue); err != nil {
		return nil, err
	}
	if st.PendingFines, err = e.store.Fines().CountByStatus(ctx, models.FinePending); err != nil {
		return nil, err
	}

	return st, nil
}
