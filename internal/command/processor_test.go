package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/participa/internal/command"
	"github.com/gosuda/participa/internal/domain"
	"github.com/gosuda/participa/internal/messenger"
)

func TestProcessor_HandleInbound(t *testing.T) {
	t.Parallel()

	t.Run("new sender records with label", func(t *testing.T) {
		t.Parallel()

		ledger := newLedger(t)
		proc := command.NewProcessor(command.NewParser(adminID, nil), command.NewExecutor(ledger, &fakeRunner{}))

		reply, err := proc.HandleInbound(context.Background(), messenger.InboundMessage{
			Platform:    "twilio",
			SenderID:    "whatsapp:+5571333333333",
			DisplayName: "Caio",
			Text:        "Participei: clipe final",
		})
		require.NoError(t, err)
		assert.Equal(t, "✅ Olá, Caio! Sua participação foi registrada com sucesso!", reply)

		history, err := ledger.ListBySender(context.Background(), "whatsapp:+5571333333333")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "clipe final", history[0].Label)
	})

	t.Run("missing display name uses sender", func(t *testing.T) {
		t.Parallel()

		proc := command.NewProcessor(command.NewParser(adminID, nil), command.NewExecutor(newLedger(t), &fakeRunner{}))

		reply, err := proc.HandleInbound(context.Background(), messenger.InboundMessage{SenderID: "whatsapp:+1", Text: "gravei"})
		require.NoError(t, err)
		assert.Equal(t, "✅ Olá, whatsapp:+1! Sua participação foi registrada com sucesso!", reply)
	})

	t.Run("unrecognized text is silent", func(t *testing.T) {
		t.Parallel()

		ledger := newLedger(t)
		proc := command.NewProcessor(command.NewParser(adminID, nil), command.NewExecutor(ledger, &fakeRunner{}))

		for _, text := range []string{"", "   ", "olá", "/relatorio agora"} {
			reply, err := proc.HandleInbound(context.Background(), messenger.InboundMessage{SenderID: "member", Text: text})
			require.NoError(t, err)
			assert.Empty(t, reply, "text %q", text)
		}

		count, err := ledger.Count(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		t.Parallel()

		proc := command.NewProcessor(command.NewParser(adminID, nil), command.NewExecutor(failingLedger{}, &fakeRunner{}))

		_, err := proc.HandleInbound(context.Background(), messenger.InboundMessage{SenderID: "u", Text: "participei"})
		require.Error(t, err)

		var storageErr *domain.StorageError
		assert.True(t, errors.As(err, &storageErr))
	})
}
