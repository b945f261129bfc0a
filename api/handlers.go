package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"truthchain/errs"
	"truthchain/models"
	"truthchain/service"
)

type stakeRequest struct {
	PostID         string          `json:"post_id"`
	StakerID       string          `json:"staker_id"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           string          `json:"kind"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type stakeResponse struct {
	RecordID   string          `json:"record_id"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Replayed   bool            `json:"replayed,omitempty"`
}

func (s *Server) handlePlaceStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: "bad_request"})
		return
	}

	result, err := s.staking.Stake(r.Context(), service.StakeParams{
		PostID:         req.PostID,
		StakerID:       req.StakerID,
		Amount:         req.Amount,
		Kind:           models.StakeKind(req.Kind),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, stakeResponse{
		RecordID:   result.Record.ID,
		NewBalance: result.NewBalance,
		Replayed:   result.Replayed,
	})
}

type reverseResponse struct {
	RecordID   string     `json:"record_id"`
	Status     string     `json:"status"`
	ReversedAt *time.Time `json:"reversed_at,omitempty"`
}

func (s *Server) handleReverseStake(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "id")

	record, err := s.staking.ReverseStake(r.Context(), recordID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reverseResponse{
		RecordID:   record.ID,
		Status:     string(record.Status),
		ReversedAt: record.ReversedAt,
	})
}

type createUserRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type balanceResponse struct {
	UserID           string          `json:"user_id"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: "bad_request"})
		return
	}

	user, err := s.users.GetOrCreateUser(r.Context(), req.UserID, req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:           user.ID,
		Balance:          user.Balance,
		AvailableBalance: user.AvailableBalance,
	})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	user, err := s.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:           user.ID,
		Balance:          user.Balance,
		AvailableBalance: user.AvailableBalance,
	})
}

type canStakeResponse struct {
	CanStake       bool            `json:"can_stake"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

func (s *Server) handleCanStake(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil {
		writeError(w, r, errs.Wrap(errs.ErrInvalidAmount, "unparseable amount"))
		return
	}

	canStake, balance, err := s.ledger.CanStake(r.Context(), userID, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, canStakeResponse{
		CanStake:       canStake,
		CurrentBalance: balance,
	})
}

type transactionEntry struct {
	ID              int64           `json:"id"`
	ChangeAmount    decimal.Decimal `json:"change_amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	TransactionType string          `json:"transaction_type"`
	RelatedID       *string         `json:"related_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (s *Server) handleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	histories, err := s.ledger.GetTransactions(r.Context(), userID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries := make([]transactionEntry, 0, len(histories))
	for _, h := range histories {
		entries = append(entries, transactionEntry{
			ID:              h.ID,
			ChangeAmount:    h.ChangeAmount,
			BalanceAfter:    h.BalanceAfter,
			TransactionType: string(h.TransactionType),
			RelatedID:       h.RelatedID,
			CreatedAt:       h.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": entries})
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	if err := s.reconcile.SyncUser(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := s.ledger.GetBalance(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		UserID:           user.ID,
		Balance:          user.Balance,
		AvailableBalance: user.AvailableBalance,
	})
}

func (s *Server) handleReconcileAll(w http.ResponseWriter, r *http.Request) {
	synced, err := s.reconcile.SyncAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

type createPostRequest struct {
	AuthorID    string          `json:"author_id"`
	Content     string          `json:"content"`
	StakeAmount decimal.Decimal `json:"stake_amount"`
}

type postResponse struct {
	ID            string          `json:"id"`
	AuthorID      string          `json:"author_id"`
	Content       string          `json:"content"`
	StakeAmount   decimal.Decimal `json:"stake_amount"`
	ChallengePool decimal.Decimal `json:"challenge_pool"`
	Verifications int             `json:"verifications"`
	Challenges    int             `json:"challenges"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: "bad_request"})
		return
	}

	post, err := s.posts.CreatePost(r.Context(), req.AuthorID, req.Content, req.StakeAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPostResponse(post))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	post, err := s.posts.GetPost(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

type postStakeEntry struct {
	RecordID  string          `json:"record_id"`
	StakerID  string          `json:"staker_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      string          `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

func (s *Server) handleGetPostStakes(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	records, err := s.posts.GetPostStakes(r.Context(), postID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries := make([]postStakeEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, postStakeEntry{
			RecordID:  rec.ID,
			StakerID:  rec.StakerID,
			Amount:    rec.Amount,
			Kind:      string(rec.Kind),
			CreatedAt: rec.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"stakes": entries})
}

type recomputeRequest struct {
	AuthorStake decimal.Decimal `json:"author_stake"`
}

func (s *Server) handleRecomputePost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")

	var req recomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: "bad_request"})
		return
	}

	post, err := s.posts.RepairAggregates(r.Context(), postID, req.AuthorStake)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toPostResponse(post))
}

func toPostResponse(post *models.Post) postResponse {
	return postResponse{
		ID:            post.ID,
		AuthorID:      post.AuthorID,
		Content:       post.Content,
		StakeAmount:   post.StakeAmount,
		ChallengePool: post.ChallengePool,
		Verifications: post.Verifications,
		Challenges:    post.Challenges,
		CreatedAt:     post.CreatedAt,
	}
}
