package logx

import "go.uber.org/zap"

// New builds the service logger. Production config unless mode says otherwise.
func New(mode, service string) (*zap.Logger, error) {
	var cfg zap.Config
	switch mode {
	case "dev", "development":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", service)), nil
}
