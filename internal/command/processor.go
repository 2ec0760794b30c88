package command

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/participa/internal/messenger"
)

// Processor parses and executes inbound messages for every messenger channel.
type Processor struct {
	parser   *Parser
	executor *Executor
}

// Compile-time interface check.
var _ messenger.InboundHandler = (*Processor)(nil) //nolint:gochecknoglobals // compile-time check

// NewProcessor creates a Processor.
func NewProcessor(parser *Parser, executor *Executor) *Processor {
	return &Processor{parser: parser, executor: executor}
}

// HandleInbound implements messenger.InboundHandler.
func (p *Processor) HandleInbound(ctx context.Context, msg messenger.InboundMessage) (string, error) {
	cmd := p.parser.Parse(msg.Text, msg.SenderID, msg.DisplayName)
	if cmd.Action == ActionUnknown {
		return "", nil
	}

	logger := log.With().
		Str("platform", msg.Platform).
		Str("sender_id", cmd.SenderID).
		Str("action", string(cmd.Action)).
		Logger()

	reply, err := p.executor.Execute(ctx, cmd)
	if err != nil {
		logger.Error().Err(err).Msg("command failed")
		return "", fmt.Errorf("command.Processor.HandleInbound: %w", err)
	}

	logger.Info().Bool("replied", reply != "").Msg("command handled")
	return reply, nil
}
