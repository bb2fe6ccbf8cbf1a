package services

import (
	"context"
	"encoding/json"
	"fmt"

	"coffee-telegram/db"
)

const (
	outboundRole  = "system/outbound"
	sentViaReward = "reward_notice"
)

// SaveOutboundMessage persists an outbound system message.
func SaveOutboundMessage(ctx context.Context, chatID int64, content string, meta map[string]interface{}) error {
	metaJSON, err := marshalMeta(meta)
	if err != nil {
		return err
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO messages (chat_id, role, content, meta)
		VALUES ($1, $2, $3, $4::jsonb)`,
		chatID, outboundRole, content, metaJSON,
	)
	return err
}

// ClaimRewardNotice records the reward notice of n.OrderID before it is sent. It returns
// false when the notice was already claimed, so redelivered notices are sent once.
func ClaimRewardNotice(ctx context.Context, n RewardNotice, content string) (bool, error) {
	metaJSON, err := marshalMeta(map[string]interface{}{
		"sent_via": sentViaReward,
		"order_id": fmt.Sprintf("%d", n.OrderID),
		"earned":   n.Earned,
	})
	if err != nil {
		return false, err
	}
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO messages (chat_id, role, content, meta)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT ((meta->>'order_id')) WHERE meta->>'sent_via' = 'reward_notice' DO NOTHING`,
		n.CustomerTgID, outboundRole, content, metaJSON,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseRewardNotice drops the claim of a notice that could not be delivered so a retry can send it.
func ReleaseRewardNotice(ctx context.Context, orderID int64) error {
	_, err := db.Pool.Exec(ctx, `
		DELETE FROM messages
		WHERE role = $1 AND meta->>'sent_via' = $2 AND meta->>'order_id' = $3`,
		outboundRole, sentViaReward, fmt.Sprintf("%d", orderID),
	)
	return err
}

func marshalMeta(meta map[string]interface{}) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal meta: %w", err)
	}
	return string(b), nil
}
