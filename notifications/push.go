package notifications

import (
	"context"
	"fmt"
	"io"
	"strings"

	"chime/state"
	"chime/types"
	"chime/utils"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/georgysavva/scany/v2/pgxscan"
)

var pushSubCols = strings.Join(utils.GetCols(types.PushSubscription{}), ",")

// PushToOwner sends a payload to every push subscription the owner has
// registered.
func PushToOwner(ctx context.Context, ownerID string, message Message) error {
	rows, err := state.Pool.Query(ctx, "SELECT "+pushSubCols+" FROM push_subscriptions WHERE owner_id = $1", ownerID)

	if err != nil {
		return fmt.Errorf("error finding subscriptions: %w", err)
	}

	var subs []types.PushSubscription

	err = pgxscan.ScanAll(&subs, rows)

	if err != nil {
		return fmt.Errorf("error scanning subscriptions: %w", err)
	}

	bytes, err := json.Marshal(message)

	if err != nil {
		return err
	}

	for _, sub := range subs {
		state.Logger.Infow("Sending push notification", "notif_id", sub.NotifID)

		err := pushToSubscription(ctx, sub, bytes)

		if err != nil {
			state.Logger.Error(err)
			continue
		}
	}

	return nil
}

func pushToSubscription(ctx context.Context, sub types.PushSubscription, message []byte) error {
	wsub := webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}

	resp, err := webpush.SendNotification(message, &wsub, &webpush.Options{
		Subscriber:      state.Config.Notifications.Subscriber,
		VAPIDPublicKey:  state.Config.Notifications.VapidPublicKey,
		VAPIDPrivateKey: state.Config.Notifications.VapidPrivateKey,
		TTL:             30,
	})

	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode == 410 || resp.StatusCode == 404 {
		// Subscription is gone, drop it
		state.Pool.Exec(ctx, "DELETE FROM push_subscriptions WHERE notif_id = $1", sub.NotifID)
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	state.Logger.Info(resp.StatusCode, msg)

	return nil
}
