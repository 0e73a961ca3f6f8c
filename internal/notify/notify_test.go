package notify_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/foodorder/internal/notify"
)

func TestNewPrefersHost(t *testing.T) {
	var got string
	host := notify.Func(func(_ context.Context, msg string) error {
		got = msg
		return nil
	})

	n := notify.New(host, nil)
	require.NoError(t, n.Alert(context.Background(), "Your cart is empty!"))
	require.Equal(t, "Your cart is empty!", got)
}

func TestFallbackLogsAndKeepsHistory(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := notify.New(nil, logger.WithField("component", "notifier"))

	require.NoError(t, n.Alert(context.Background(), "Please enter delivery address"))
	require.NoError(t, n.Alert(context.Background(), "   "))

	require.Len(t, hook.Entries, 1)
	require.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	require.Equal(t, "Please enter delivery address", hook.LastEntry().Data["alert"])

	fallback, ok := n.(*notify.LogNotifier)
	require.True(t, ok)
	require.Equal(t, []string{"Please enter delivery address"}, fallback.Drain())
	require.Empty(t, fallback.Drain())
}

func TestFallbackHistoryIsBounded(t *testing.T) {
	n := notify.NewLogNotifier(nil)
	for i := 0; i < 100; i++ {
		require.NoError(t, n.Alert(context.Background(), "msg"))
	}
	require.Len(t, n.Drain(), 32)
}
