package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"bolso/internal/core"
	"bolso/internal/parser"
	"bolso/internal/storage"
)

// maxAudioBytes caps voice uploads. Recordings are short phrases; 10MB
// is generous.
const maxAudioBytes = 10 << 20

// --- wire types ---

// parsedInputDTO is the wire form of a parse result. The client shows
// it for confirmation and posts it back, possibly edited.
type parsedInputDTO struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      string `json:"amount"` // decimal string, dot or comma
	Category    string `json:"category,omitempty"`
	Date        string `json:"date,omitempty"`
}

func toParsedInputDTO(p core.ParsedInput) parsedInputDTO {
	return parsedInputDTO{
		Type:        string(p.Type),
		Description: p.Description,
		Amount:      centsToDecimal(p.Amount.Cents),
		Category:    string(p.Category),
		Date:        p.Date,
	}
}

// toParsedInput validates the wire form back into the domain. The
// category must be known when present; the date may be anything, the
// normalizer falls back for malformed values.
func (d parsedInputDTO) toParsedInput() (core.ParsedInput, error) {
	txType := core.TransactionType(strings.ToUpper(strings.TrimSpace(d.Type)))
	if txType != core.TypeIncome && txType != core.TypeExpense {
		return core.ParsedInput{}, fmt.Errorf("%w: %q", core.ErrInvalidType, d.Type)
	}

	description := strings.TrimSpace(d.Description)
	if description == "" {
		return core.ParsedInput{}, core.ErrEmptyDescription
	}

	cents, err := core.ParseDecimalToCents(d.Amount)
	if err != nil {
		return core.ParsedInput{}, err
	}

	var category core.Category
	if raw := strings.TrimSpace(d.Category); raw != "" && txType == core.TypeExpense {
		category, err = core.ParseCategory(raw)
		if err != nil {
			return core.ParsedInput{}, err
		}
	}

	return core.ParsedInput{
		Type:        txType,
		Description: description,
		Amount:      core.Money{Cents: cents},
		Category:    category,
		Date:        strings.TrimSpace(d.Date),
	}, nil
}

type confirmRequest struct {
	parsedInputDTO
	EditingID string `json:"editing_id,omitempty"`
}

type transactionDTO struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	AmountCents   int64     `json:"amount_cents"`
	Amount        string    `json:"amount"`
	Category      string    `json:"category"`
	CategoryLabel string    `json:"category_label"`
	Date          string    `json:"date"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:            t.ID,
		Description:   t.Description,
		AmountCents:   t.Amount.Cents,
		Amount:        centsToDecimal(t.Amount.Cents),
		Category:      string(t.Category),
		CategoryLabel: t.Category.Label(),
		Date:          t.Date.ISO(),
		CreatedAt:     t.CreatedAt,
	}
}

func toTransactionDTOs(list []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(list))
	for _, t := range list {
		out = append(out, toTransactionDTO(t))
	}
	return out
}

type incomeDTO struct {
	SalaryCents  int64 `json:"salary_cents"`
	AdvanceCents int64 `json:"advance_cents"`
	ExtrasCents  int64 `json:"extras_cents"`
	TotalCents   int64 `json:"total_cents"`
}

func toIncomeDTO(i core.Income) incomeDTO {
	return incomeDTO{
		SalaryCents:  i.Salary.Cents,
		AdvanceCents: i.Advance.Cents,
		ExtrasCents:  i.Extras.Cents,
		TotalCents:   i.Total().Cents,
	}
}

type categoryStatDTO struct {
	Category    string  `json:"category"`
	Label       string  `json:"label"`
	Percent     int     `json:"percent"`
	LimitCents  int64   `json:"limit_cents"`
	SpentCents  int64   `json:"spent_cents"`
	PercentUsed float64 `json:"percent_used"`
	OverLimit   bool    `json:"over_limit"`
}

type weekBucketDTO struct {
	Index      int              `json:"index"`
	Label      string           `json:"label"`
	TotalCents int64            `json:"total_cents"`
	ByCategory map[string]int64 `json:"by_category"`
}

type reportDTO struct {
	Month              string            `json:"month"`
	TotalIncomeCents   int64             `json:"total_income_cents"`
	TotalExpensesCents int64             `json:"total_expenses_cents"`
	RemainingCents     int64             `json:"remaining_cents"`
	Categories         []categoryStatDTO `json:"categories"`
	Weeks              []weekBucketDTO   `json:"weeks"`
	AverageWeeklyCents int64             `json:"average_weekly_cents"`
	HighestWeek        int               `json:"highest_week"`
}

func toReportDTO(r core.MonthlyReport) reportDTO {
	dto := reportDTO{
		Month:              string(r.Month),
		TotalIncomeCents:   r.TotalIncome.Cents,
		TotalExpensesCents: r.TotalExpenses.Cents,
		RemainingCents:     r.Remaining.Cents,
		AverageWeeklyCents: r.AverageWeekly.Cents,
		HighestWeek:        r.HighestWeek,
	}
	for _, c := range r.Categories {
		dto.Categories = append(dto.Categories, categoryStatDTO{
			Category:    string(c.Category),
			Label:       c.Label,
			Percent:     c.Percent,
			LimitCents:  c.LimitAmount.Cents,
			SpentCents:  c.Spent.Cents,
			PercentUsed: c.PercentUsed,
			OverLimit:   c.OverLimit,
		})
	}
	for _, w := range r.Weeks {
		byCat := make(map[string]int64, len(w.ByCategory))
		for cat, amount := range w.ByCategory {
			byCat[string(cat)] = amount.Cents
		}
		dto.Weeks = append(dto.Weeks, weekBucketDTO{
			Index:      w.Index,
			Label:      w.Label,
			TotalCents: w.Total.Cents,
			ByCategory: byCat,
		})
	}
	return dto
}

type categoryInfoDTO struct {
	Category       string `json:"category"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	Color          string `json:"color"`
	Icon           string `json:"icon"`
	DefaultPercent int    `json:"default_percent"`
}

type settingsResponse struct {
	Percentages map[string]int    `json:"percentages"`
	Categories  []categoryInfoDTO `json:"categories"`
}

// --- handlers ---

// handleParse runs the language model over free text or a voice
// recording and returns the structured candidate for confirmation.
// Nothing is persisted here.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		writeError(w, http.StatusServiceUnavailable, "natural-language parsing is not configured")
		return
	}

	var (
		parsed core.ParsedInput
		err    error
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		parsed, err = s.parseAudioRequest(r)
	} else {
		var body struct {
			Text string `json:"text"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		parsed, err = s.parser.ParseText(r.Context(), body.Text)
	}

	if err != nil {
		if errors.Is(err, parser.ErrParseFailure) || errors.Is(err, parser.ErrEmptyInput) || errors.Is(err, core.ErrUnknownCategory) {
			writeDomainError(w, err)
			return
		}
		slog.ErrorContext(r.Context(), "Parser backend error", "error", err)
		writeError(w, http.StatusBadGateway, "language model unavailable")
		return
	}

	writeJSON(w, http.StatusOK, toParsedInputDTO(parsed))
}

func (s *Server) parseAudioRequest(r *http.Request) (core.ParsedInput, error) {
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		return core.ParsedInput{}, fmt.Errorf("%w: %v", parser.ErrEmptyInput, err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return core.ParsedInput{}, fmt.Errorf("%w: missing audio field", parser.ErrEmptyInput)
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes))
	if err != nil {
		return core.ParsedInput{}, fmt.Errorf("read audio: %w", err)
	}
	return s.parser.ParseAudio(r.Context(), audio, header.Header.Get("Content-Type"))
}

// handleConfirm persists a confirmed parse result: an expense becomes a
// transaction (new or edited), an income accrues into its month.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	parsed, err := req.toParsedInput()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.service.ConfirmParsed(r.Context(), parsed, req.EditingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.reportCache.Purge()

	switch result.Type {
	case core.TypeExpense:
		writeJSON(w, http.StatusCreated, map[string]any{
			"type":        string(result.Type),
			"transaction": toTransactionDTO(result.Transaction),
		})
	default:
		writeJSON(w, http.StatusCreated, map[string]any{
			"type":   string(result.Type),
			"month":  string(result.Month),
			"income": toIncomeDTO(result.Income),
		})
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := s.service.ListTransactions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": toTransactionDTOs(list)})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.DeleteTransaction(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeDomainError(w, err)
		return
	}
	s.reportCache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

// handleTransactionStream pushes the full transaction snapshot over SSE
// whenever the collection changes, starting with the current state.
func (s *Server) handleTransactionStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	snapshots, cancel := s.hub.Subscribe()
	defer cancel()

	send := func(list []core.Transaction) bool {
		payload, err := json.Marshal(toTransactionDTOs(list))
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to marshal snapshot", "error", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	initial, err := s.service.ListTransactions(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !send(initial) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-snapshots:
			if !open {
				return
			}
			if !send(snapshot) {
				return
			}
		}
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	month := core.MonthKeyOf(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		parsed, err := core.ParseMonthKey(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		month = parsed
	}

	if cached, ok := s.reportCache.Get(string(month)); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "month_key", string(month))
		writeJSON(w, http.StatusOK, toReportDTO(cached))
		return
	}

	report, err := s.service.GetReport(r.Context(), month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.reportCache.Set(string(month), report)

	writeJSON(w, http.StatusOK, toReportDTO(report))
}

func (s *Server) handleGetIncome(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonthKey(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := s.service.GetIncome(r.Context(), month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncomeDTO(income))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonthKey(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body struct {
		SalaryCents  int64 `json:"salary_cents"`
		AdvanceCents int64 `json:"advance_cents"`
		ExtrasCents  int64 `json:"extras_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	income := core.Income{
		Salary:  core.Money{Cents: body.SalaryCents},
		Advance: core.Money{Cents: body.AdvanceCents},
		Extras:  core.Money{Cents: body.ExtrasCents},
	}
	if err := s.service.UpdateIncome(r.Context(), month, income); err != nil {
		writeDomainError(w, err)
		return
	}
	s.reportCache.Delete(string(month))

	writeJSON(w, http.StatusOK, toIncomeDTO(income))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.service.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Percentages map[string]int `json:"percentages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	settings := make(core.AllocationSettings, len(body.Percentages))
	for raw, percent := range body.Percentages {
		category, err := core.ParseCategory(raw)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		settings[category] = clampPercent(percent)
	}

	if err := s.service.UpdateSettings(r.Context(), settings); err != nil {
		writeDomainError(w, err)
		return
	}
	// Settings affect every month's report.
	s.reportCache.Purge()

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// clampPercent forces a percentage into 0..100 before validation. A
// clamped set that no longer sums to 100 is then rejected by the
// validator, so out-of-range values can never reach storage.
func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func toSettingsResponse(settings core.AllocationSettings) settingsResponse {
	resp := settingsResponse{Percentages: make(map[string]int, len(settings))}
	for _, c := range core.Categories() {
		info := c.Info()
		resp.Percentages[string(c)] = settings[c]
		resp.Categories = append(resp.Categories, categoryInfoDTO{
			Category:       string(c),
			Label:          info.Label,
			Description:    info.Description,
			Color:          info.Color,
			Icon:           info.Icon,
			DefaultPercent: info.DefaultPercent,
		})
	}
	return resp
}

// handleExport renders the delimited table for a month, optionally
// narrowed to one category.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	month := core.MonthKeyOf(time.Now())
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		parsed, err := core.ParseMonthKey(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		month = parsed
	}

	var category core.Category
	if v := strings.TrimSpace(r.URL.Query().Get("category")); v != "" {
		parsed, err := core.ParseCategory(v)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		category = parsed
	}

	table, err := s.service.BuildExport(r.Context(), month, category)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("transacoes-%s.csv", month)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(table))
}
