package cleaner

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/pable/atlas-metrics/internal/model"
)

// RuleEnv is the environment reject rules are evaluated against.
type RuleEnv struct {
	GameID      string
	Map         string
	Format      string
	FirstPlayer string
	NumPlayers  int
	Duration    float64
	TotalTurns  int
	Commanders  []string
	Names       []string
}

func newRuleEnv(g *model.Game) RuleEnv {
	env := RuleEnv{
		GameID:      g.GameID,
		Map:         g.Map,
		Format:      g.Format,
		FirstPlayer: g.FirstPlayer,
		NumPlayers:  len(g.Players),
		Duration:    g.DurationMinutes.Float64,
		TotalTurns:  g.TotalTurns(),
	}
	for _, p := range g.Players {
		env.Commanders = append(env.Commanders, p.Commander)
		env.Names = append(env.Names, p.Name)
	}
	return env
}

type rule struct {
	source  string
	program *vm.Program
}

// Rules is a compiled set of boolean reject expressions.
type Rules struct {
	rules []rule
}

// CompileRules compiles every expression up front. A rule that does not
// compile to a boolean expression is a configuration error.
func CompileRules(sources []string) (*Rules, error) {
	r := &Rules{}
	for _, src := range sources {
		program, err := expr.Compile(src, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to compile reject rule %q", src)
		}
		r.rules = append(r.rules, rule{source: src, program: program})
	}
	return r, nil
}

// Len returns the number of compiled rules.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// Match returns the source of the first rule that evaluates to true, or "".
// Rules that fail at evaluation time are logged and skipped.
func (r *Rules) Match(g *model.Game) string {
	if r.Len() == 0 {
		return ""
	}
	env := newRuleEnv(g)
	for _, ru := range r.rules {
		out, err := expr.Run(ru.program, env)
		if err != nil {
			log.Error().
				Str("module", "cleaner").
				Str("rule", ru.source).
				Str("game_id", g.GameID).
				Err(err).
				Msg("failed to evaluate reject rule")
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return ru.source
		}
	}
	return ""
}
