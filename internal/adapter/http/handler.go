package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"currency-converter/internal/domain/model"
	"currency-converter/internal/domain/ports"
	"currency-converter/internal/service"
	"currency-converter/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const healthMessage = "Currency Converter Service is running!"

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
}

type CurrenciesResponse struct {
	Currencies []string `json:"currencies"`
	Count      int      `json:"count"`
}

type LatestRateResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Rate string `json:"rate"`
}

type Handler struct {
	service  ports.ConversionService
	validate *validator.Validate
	log      *logger.Logger
}

func NewHandler(service ports.ConversionService, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

func (h *Handler) ConvertHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseConversionRequest(h.validate, r.URL.Query())
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	from, to := req.pair()
	h.log.Info("Currency conversion request", "request_id", GetRequestID(r.Context()), "amount", req.Amount.String(), "from", from, "to", to)

	result, err := h.service.Convert(r.Context(), req.Amount, from, to)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendSuccessResponse(w, result)
}

func (h *Handler) ConvertAsyncHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseConversionRequest(h.validate, r.URL.Query())
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	from, to := req.pair()
	h.log.Info("Async currency conversion request", "request_id", GetRequestID(r.Context()), "amount", req.Amount.String(), "from", from, "to", to)

	select {
	case outcome := <-h.service.ConvertAsync(r.Context(), req.Amount, from, to):
		if outcome.Err != nil {
			h.handleServiceError(w, outcome.Err)
			return
		}
		h.sendSuccessResponse(w, outcome.Result)
	case <-r.Context().Done():
		h.log.Warn("Client went away before async conversion finished", "request_id", GetRequestID(r.Context()))
	}
}

func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	base := model.Currency(mux.Vars(r)["base"])

	history, err := h.service.GetHistory(r.Context(), base)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendSuccessResponse(w, history)
}

func (h *Handler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	h.service.ClearHistory(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearRateCacheHandler(w http.ResponseWriter, r *http.Request) {
	h.service.ClearRateCache(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) PairsHandler(w http.ResponseWriter, r *http.Request) {
	pairs := h.service.AvailablePairs(r.Context())

	keys := make([]string, 0, len(pairs))
	for _, p := range pairs {
		keys = append(keys, p.Key())
	}
	h.sendSuccessResponse(w, CurrenciesResponse{Currencies: keys, Count: len(keys)})
}

func (h *Handler) BaseCurrenciesHandler(w http.ResponseWriter, r *http.Request) {
	bases := h.service.AvailableBaseCurrencies(r.Context())

	codes := make([]string, 0, len(bases))
	for _, b := range bases {
		codes = append(codes, b.String())
	}
	h.sendSuccessResponse(w, CurrenciesResponse{Currencies: codes, Count: len(codes)})
}

func (h *Handler) LatestRateHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parsePairRequest(h.validate, r.URL.Query())
	if err != nil {
		h.sendErrorResponse(w, http.StatusBadRequest, "Invalid Request", err.Error())
		return
	}

	rate, err := h.service.LatestRate(r.Context(), model.Currency(req.From), model.Currency(req.To))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.sendSuccessResponse(w, LatestRateResponse{From: req.From, To: req.To, Rate: rate.String()})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(healthMessage))
}

func (h *Handler) sendSuccessResponse(w http.ResponseWriter, data interface{}) {
	response := Response{
		Success: true,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) sendErrorResponse(w http.ResponseWriter, statusCode int, errorLabel, message string) {
	response := ErrorResponse{
		Timestamp: time.Now(),
		Status:    statusCode,
		Error:     errorLabel,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("Failed to encode error response", "error", err)
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorLabel := "Internal Server Error"
	message := "An unexpected error occurred"

	var convErr *service.ConversionError
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		statusCode = http.StatusBadRequest
		errorLabel = "Invalid Request"
		message = "amount must be positive"
	case errors.Is(err, service.ErrInternal):
		// keep the generic 500 body
	case errors.As(err, &convErr):
		statusCode = http.StatusBadRequest
		errorLabel = "Currency Conversion Error"
		message = "Unable to convert currency: " + convErr.Err.Error()
	case errors.Is(err, service.ErrHistoryNotFound):
		statusCode = http.StatusNotFound
		errorLabel = "Not Found"
		message = err.Error()
	}

	h.log.Error("Service error", "error", err, "status_code", statusCode)
	h.sendErrorResponse(w, statusCode, errorLabel, message)
}
