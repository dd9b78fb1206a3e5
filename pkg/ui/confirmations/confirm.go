// Package confirmations asks the user before a plan is applied.
package confirmations

import (
	"fmt"
	"io"
	"os"

	"github.com/arthur-debert/agentconf/pkg/installer"
	"github.com/arthur-debert/agentconf/pkg/logging"
	"github.com/arthur-debert/agentconf/pkg/ui/styles"
	"github.com/pterm/pterm"
)

// AskFunc shows a yes/no question and returns the answer
type AskFunc func(question string) (bool, error)

// Prompt confirms plans interactively. Without a terminal on stdin every
// plan is declined, so unattended runs need --force.
type Prompt struct {
	Out         io.Writer
	Interactive bool
	Ask         AskFunc
}

// NewPrompt returns a Prompt reading the terminal through pterm
func NewPrompt(out io.Writer) *Prompt {
	return &Prompt{
		Out:         out,
		Interactive: styles.IsInteractive(os.Stdin),
		Ask:         ptermAsk,
	}
}

func ptermAsk(question string) (bool, error) {
	return pterm.DefaultInteractiveConfirm.
		WithDefaultValue(false).
		Show(question)
}

// Confirm lists the pending changes of plan and asks whether to apply them
func (p *Prompt) Confirm(plan *installer.Plan) (bool, error) {
	logger := logging.GetLogger("confirmations")
	pending := plan.Pending()
	name := plan.Target.Name

	if !p.Interactive {
		logger.Warn().Str("target", name).Msg("No terminal to confirm on, declining (use --force)")
		return false, nil
	}

	out := p.Out
	if out == nil {
		out = io.Discard
	}
	fmt.Fprintf(out, "%s\n", styles.Render("Header", "==> "+name))
	for _, c := range pending {
		fmt.Fprintf(out, "    %-9s %s\n", c.Kind, styles.Render("Path", c.Path))
	}

	ok, err := p.Ask(fmt.Sprintf("Apply %d change(s) to %s?", len(pending), name))
	if err != nil {
		return false, err
	}
	logger.Debug().Str("target", name).Bool("approved", ok).Msg("Confirmation answered")
	return ok, nil
}

// Question asks a free-standing yes/no question. Without a terminal the
// answer is no.
func (p *Prompt) Question(q string) (bool, error) {
	if !p.Interactive {
		logger := logging.GetLogger("confirmations")
		logger.Warn().Str("question", q).Msg("No terminal to confirm on, declining (use --force)")
		return false, nil
	}
	return p.Ask(q)
}
