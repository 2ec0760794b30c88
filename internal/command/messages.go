package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosuda/participa/internal/domain"
)

// Presentation layouts, applied in the configured time zone.
const (
	historyDateLayout = "02/01/2006"
	recentDateLayout  = "02/01 15:04"
)

const (
	msgHistoryEmpty = "Você ainda não tem nenhuma participação registrada."
	msgRecentEmpty  = "Nenhum registro encontrado."
	msgUndoDone     = "✅ Seu último registro de participação foi removido. Por favor, registre novamente se necessário."
	msgUndoNothing  = "❌ Você não possui registros para corrigir."
	msgUndoTarget   = "⚠️ A correção do registro de outro participante não é suportada. Nenhum registro foi alterado."

	msgHelp = "🤖 *Comandos do Bot de Gravações*\n\n" +
		"*/participar* - Registra sua participação na gravação de hoje.\n_Ex: `Participei: vídeo de highlights`_\n\n" +
		"*/meu historico* - Mostra todas as suas participações.\n\n" +
		"*/ajuda* - Mostra esta mensagem."
)

func recordedMessage(displayName string) string {
	return fmt.Sprintf("✅ Olá, %s! Sua participação foi registrada com sucesso!", displayName)
}

func historyMessage(displayName string, entries []domain.HistoryEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return msgHistoryEmpty
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s! Você participou *%d* vez(es).\n\n*Datas*:\n", displayName, len(entries))
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.RecordedAt.In(loc).Format(historyDateLayout))
		if e.Label != "" {
			fmt.Fprintf(&b, " (Vídeo: %s)", e.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func recentMessage(entries []domain.RecentEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return msgRecentEmpty
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Últimos %d Registros*:\n\n", RecentLimit)
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s em %s", e.DisplayName, e.RecordedAt.In(loc).Format(recentDateLayout))
		if e.Label != "" {
			fmt.Fprintf(&b, " (%s)", e.Label)
		}
		b.WriteString("\n")
	}
	return b.String()
}
