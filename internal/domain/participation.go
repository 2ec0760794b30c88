package domain

import (
	"context"
	"strings"
	"time"
)

// ParticipationRecord is one entry in the ledger. Records are immutable once
// stored; the only mutation is whole-record deletion.
type ParticipationRecord struct {
	ID          int64     `json:"id"`
	SenderID    string    `json:"sender_id"`
	DisplayName string    `json:"display_name"`
	RecordedAt  time.Time `json:"recorded_at"`
	Label       string    `json:"label,omitempty"` // empty when absent, NULL in storage
}

// HistoryEntry is one row of a sender's history, newest first.
type HistoryEntry struct {
	RecordedAt time.Time `json:"recorded_at"`
	Label      string    `json:"label,omitempty"`
}

// RecentEntry is one row of the cross-sender recent listing, newest first.
type RecentEntry struct {
	DisplayName string    `json:"display_name"`
	RecordedAt  time.Time `json:"recorded_at"`
	Label       string    `json:"label,omitempty"`
}

// ParticipationRepository is the ledger contract. Listing queries order by
// recorded_at descending with ties broken by id descending; ListAll orders by
// id ascending.
type ParticipationRepository interface {
	Append(ctx context.Context, senderID, displayName, label string) (int64, error)
	ListBySender(ctx context.Context, senderID string) ([]HistoryEntry, error)
	ListRecent(ctx context.Context, limit int) ([]RecentEntry, error)
	DeleteLatestBySender(ctx context.Context, senderID string) (bool, error)
	ListAll(ctx context.Context) ([]*ParticipationRecord, error)
	Count(ctx context.Context) (int64, error)
}

// NormalizeSenderID returns the canonical form of a sender identity. Every
// lookup by sender goes through it so reads match what Append stored.
func NormalizeSenderID(senderID string) string {
	return strings.TrimSpace(senderID)
}

// NormalizeParticipant validates and trims the identity fields of a new
// record. A blank display name falls back to the sender ID.
func NormalizeParticipant(senderID, displayName, label string) (string, string, string, error) {
	senderID = NormalizeSenderID(senderID)
	if senderID == "" {
		return "", "", "", ErrInvalidInput
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = senderID
	}
	return senderID, displayName, strings.TrimSpace(label), nil
}
