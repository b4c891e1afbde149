package bootstrap

import (
	"fmt"

	"loglens/config"
	"loglens/core"
	"loglens/match"

	"go.uber.org/zap"
)

// App holds the initialized components shared by the CLI commands.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Sugar   *zap.SugaredLogger
	Matcher *match.Matcher
}

// NewApp initializes logging, configuration, and the matcher.
func NewApp() (*App, error) {
	logger, sugar, level, err := InitLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := InitConfig(sugar, level)
	if err != nil {
		return nil, err
	}

	matcher, err := match.NewMatcher(cfg, sugar)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize matcher: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Sugar:   sugar,
		Matcher: matcher,
	}, nil
}

// LoadRuleFile reads, compiles, and installs a rule file, logging every
// rejected rule.
func (a *App) LoadRuleFile(filename string) (*match.CompiledRuleSet, []core.Diagnostic, error) {
	rules, err := match.LoadRules(filename, a.Sugar)
	if err != nil {
		return nil, nil, err
	}
	compiled, diags := a.Matcher.LoadRules(rules)
	for _, d := range diags {
		a.Sugar.Warnw("Rule rejected", "rule_id", d.RuleID, "reason", d.Message)
	}
	if compiled.Empty() {
		return compiled, diags, fmt.Errorf("no valid rules in %s", filename)
	}
	return compiled, diags, nil
}

// Shutdown releases the matcher's resources and flushes the logger.
func (a *App) Shutdown() {
	if a.Matcher != nil {
		a.Matcher.Stop()
	}
	a.Logger.Sync()
}
