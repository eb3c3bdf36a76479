package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/querify/internal/compiler"
	"github.com/roach88/querify/internal/queryir"
	"github.com/roach88/querify/internal/render"
)

// Harness is the test execution engine.
type Harness struct {
	builder *queryir.Builder
	logger  *slog.Logger
}

// subject is what a scenario builds: a filter expression or a statement.
type subject struct {
	expr queryir.Expr
	stmt queryir.Statement
}

func (s subject) filter() queryir.Expr {
	if s.stmt != nil {
		return s.stmt.Filter()
	}
	return s.expr
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Build the filter or statement
// 2. Compare a build failure against build_error
// 3. Render every target named in expect or errors (all targets if none)
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return New(nil, nil).Run(context.Background(), scenario)
}

// New creates a harness that builds with b and logs to logger.
// Nil arguments select the defaults.
func New(b *queryir.Builder, logger *slog.Logger) *Harness {
	if b == nil {
		b = queryir.NewBuilder(queryir.DefaultRegistry(), nil)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Harness{builder: b, logger: logger}
}

// Run executes scenario. The returned error is reserved for scenarios
// that cannot be executed at all; mismatches are reported in the Result.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	subj, err := h.build(scenario)
	if err != nil {
		code := string(queryir.CodeOf(err))
		if code == "" {
			return nil, fmt.Errorf("failed to build scenario %s: %w", scenario.Name, err)
		}
		result.BuildCode = code
		if scenario.BuildError != code {
			result.AddError(fmt.Sprintf("build: expected %s, got %v", expectedBuild(scenario.BuildError), err))
		}
		h.logger.Info("scenario build failed", "scenario", scenario.Name, "code", code)
		return result, nil
	}
	if scenario.BuildError != "" {
		result.AddError(fmt.Sprintf("build: expected error %s, got success", scenario.BuildError))
		return result, nil
	}

	for _, target := range targetsOf(scenario) {
		out := h.render(subj, target)
		result.Outputs = append(result.Outputs, out)
		h.compare(scenario, out, result)
	}

	actx := &AssertionContext{Ctx: ctx, Expr: subj.filter(), Statement: subj.stmt, Scenario: scenario}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"outputs", len(result.Outputs),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) build(scenario *Scenario) (subject, error) {
	if scenario.Statement != nil {
		def, _ := scenario.Statement.V.(map[string]any)
		q, err := compiler.CompileDefinition(cuecontext.New(), scenario.Name, def)
		if err != nil {
			return subject{}, err
		}
		return subject{stmt: q.Statement}, nil
	}
	e, err := h.builder.BuildWhere(scenario.Filter.V)
	return subject{expr: e}, err
}

func (h *Harness) render(subj subject, target queryir.Target) Output {
	var (
		text string
		err  error
	)
	if subj.stmt != nil {
		text, err = render.StatementText(subj.stmt, target)
	} else {
		text, err = render.ExprText(subj.expr, target)
	}
	if err != nil {
		h.logger.Debug("render failed", "target", target, "error", err)
		return Output{Target: target, Code: codeOf(err), Message: err.Error()}
	}
	return Output{Target: target, Text: text}
}

func (h *Harness) compare(scenario *Scenario, out Output, result *Result) {
	name := string(out.Target)
	if want, ok := scenario.Expect[name]; ok {
		switch {
		case out.Code != "":
			result.AddError(fmt.Sprintf("%s: expected %q, got error %s", name, want, out.Message))
		case out.Text != want:
			result.AddError(fmt.Sprintf("%s: expected %q, got %q", name, want, out.Text))
		}
	}
	if want, ok := scenario.Errors[name]; ok && out.Code != want {
		got := out.Code
		if got == "" {
			got = fmt.Sprintf("output %q", out.Text)
		}
		result.AddError(fmt.Sprintf("%s: expected error %s, got %s", name, want, got))
	}
}

// targetsOf returns the targets a scenario renders, in target order.
func targetsOf(scenario *Scenario) []queryir.Target {
	if len(scenario.Expect) == 0 && len(scenario.Errors) == 0 {
		return slices.Clone(queryir.Targets)
	}
	var out []queryir.Target
	for _, t := range queryir.Targets {
		_, e := scenario.Expect[string(t)]
		_, f := scenario.Errors[string(t)]
		if e || f {
			out = append(out, t)
		}
	}
	return out
}

func codeOf(err error) string {
	if code := queryir.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func expectedBuild(code string) string {
	if code == "" {
		return "success"
	}
	return "error " + code
}
