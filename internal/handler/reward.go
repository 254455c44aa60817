package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chorespec/chorespec/internal/events"
	"github.com/chorespec/chorespec/internal/model"
	"github.com/chorespec/chorespec/internal/points"
	"github.com/chorespec/chorespec/internal/store"
)

type RewardHandler struct {
	rewards       *store.RewardStore
	users         *store.UserStore
	notifications *store.NotificationStore
	engine        *points.Engine
	broker        *events.Broker
	logger        *slog.Logger
}

func NewRewardHandler(rewards *store.RewardStore, users *store.UserStore, notifications *store.NotificationStore,
	engine *points.Engine, broker *events.Broker, logger *slog.Logger) *RewardHandler {
	return &RewardHandler{
		rewards:       rewards,
		users:         users,
		notifications: notifications,
		engine:        engine,
		broker:        broker,
		logger:        logger,
	}
}

type rewardRequest struct {
	Name        string `json:"name"`
	CostPoints  int    `json:"cost_points"`
	Description string `json:"description"`
	TierLevel   int    `json:"tier_level"`
}

func validateReward(req *rewardRequest) string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.CostPoints < 1 || req.CostPoints > 10000 {
		return "cost_points must be 1-10000"
	}
	if req.TierLevel < 0 || req.TierLevel > 10 {
		return "tier_level must be 0-10"
	}
	return ""
}

func (h *RewardHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateReward(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	reward, err := h.rewards.Create(req.Name, req.Description, req.CostPoints, req.TierLevel)
	if err != nil {
		h.logger.Error("create reward", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create reward")
		return
	}
	writeJSON(w, http.StatusCreated, reward)
}

func (h *RewardHandler) List(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.rewards.List()
	if err != nil {
		h.logger.Error("list rewards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rewards")
		return
	}
	if rewards == nil {
		rewards = []model.Reward{}
	}
	writeJSON(w, http.StatusOK, rewards)
}

// Redeem spends one user's points on the reward.
func (h *RewardHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	receipt, err := h.engine.Redeem(id, req.UserID)
	if err != nil {
		h.logger.Warn("redeem reward", "reward_id", id, "user_id", req.UserID, "error", err)
		writePointsError(w, err)
		return
	}

	h.notifyRedemption(receipt.RewardName, []int64{req.UserID})
	h.broker.Publish("reward_redeemed", map[string]any{
		"reward_id": id,
		"user_id":   req.UserID,
		"points":    receipt.PointsSpent,
	})
	writeJSON(w, http.StatusOK, receipt)
}

// RedeemSplit spends the reward's cost across several members.
// Contributions must sum to the exact cost; the whole split commits
// or none of it does.
func (h *RewardHandler) RedeemSplit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Contributions []points.Contribution `json:"contributions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	receipt, err := h.engine.RedeemSplit(id, req.Contributions)
	if err != nil {
		h.logger.Warn("redeem split", "reward_id", id, "error", err)
		writePointsError(w, err)
		return
	}

	contributors := make([]int64, 0, len(receipt.Contributions))
	for _, c := range receipt.Contributions {
		contributors = append(contributors, c.UserID)
	}
	h.notifyRedemption(receipt.RewardName, contributors)
	h.broker.Publish("reward_redeemed", map[string]any{
		"reward_id": id,
		"group_id":  receipt.GroupID,
		"user_ids":  contributors,
	})
	writeJSON(w, http.StatusOK, receipt)
}

// notifyRedemption records a REWARD_REDEEMED notification for each
// contributor. Best effort; the redemption already committed.
func (h *RewardHandler) notifyRedemption(rewardName string, userIDs []int64) {
	for _, id := range userIDs {
		if _, err := h.notifications.Create(
			id, model.NotifyRewardRedeemed,
			"Reward redeemed",
			"You redeemed "+rewardName,
			nil,
		); err != nil {
			h.logger.Warn("notify redemption", "user_id", id, "error", err)
		}
	}
}
