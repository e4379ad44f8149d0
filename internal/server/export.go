package server

import (
	"encoding/csv"
	"net/http"
	"time"

	"github.com/whalehunter/whale-tracker/internal/storage"
)

// eventRow is the flat tabular form shared by the JSON and CSV exports.
type eventRow struct {
	Timestamp time.Time `json:"timestamp"`
	Address   string    `json:"address"`
	Label     string    `json:"label"`
	Chain     string    `json:"chain"`
	Asset     string    `json:"asset"`
	Change    string    `json:"change"`
	Balance   string    `json:"balance"`
}

func toEventRows(events []storage.BalanceEvent) []eventRow {
	rows := make([]eventRow, 0, len(events))
	for _, ev := range events {
		rows = append(rows, eventRow{
			Timestamp: ev.ObservedAt,
			Address:   ev.Address,
			Label:     ev.Label,
			Chain:     ev.Chain,
			Asset:     ev.Asset,
			Change:    ev.Change.String(),
			Balance:   ev.NewBalance.String(),
		})
	}
	return rows
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "json" {
		s.writeError(w, http.StatusBadRequest, "format must be csv or json")
		return
	}

	events, err := s.store.RecentObservations(r.Context(), eventLimit(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}
	rows := toEventRows(events)

	if format == "json" {
		w.Header().Set("Content-Disposition", `attachment; filename="whale_events.json"`)
		s.writeJSON(w, http.StatusOK, rows)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="whale_events.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"timestamp", "address", "label", "chain", "asset", "change", "balance"})
	for _, row := range rows {
		_ = cw.Write([]string{
			row.Timestamp.UTC().Format(time.RFC3339),
			row.Address,
			row.Label,
			row.Chain,
			row.Asset,
			row.Change,
			row.Balance,
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.Error("CSV export write failed", "error", err)
	}
}
