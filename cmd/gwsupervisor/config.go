package main

import (
	"fmt"

	"github.com/gwauto/gwsupervisor/internal/gateway"
	"github.com/gwauto/gwsupervisor/internal/model"
)

func gatewayParams(g model.Gateway) gateway.Params {
	return gateway.Params{
		Root:        g.Root,
		Version:     g.Version,
		User:        g.User,
		Password:    g.Password,
		TradingMode: gateway.TradingMode(g.Mode),
		Port:        g.Port,
	}
}

// gatewayConfig maps the file configuration onto gateway.Config, leaving
// unset values for the gateway defaults.
func gatewayConfig(cfg model.Config) (gateway.Config, error) {
	out := gateway.Config{
		Params:          gatewayParams(cfg.Gateway),
		HelperProcesses: cfg.Gateway.Helpers,
	}
	if cfg.Gateway.Scripts != nil {
		out.ScriptsDir = *cfg.Gateway.Scripts
	}
	if cfg.Gateway.DisplayName != nil {
		out.DisplayName = *cfg.Gateway.DisplayName
	}

	timeouts := cfg.Service.Timeouts
	if timeouts == nil {
		timeouts = &model.Timeouts{}
	}
	var err error
	out.InitTimeout, err = model.Duration(timeouts.Init, gateway.DefaultInitTimeout)
	if err != nil {
		return gateway.Config{}, fmt.Errorf("service.timeouts.init: %w", err)
	}
	out.TwoFactorTimeout, err = model.Duration(timeouts.TwoFactor, gateway.DefaultTwoFactorTimeout)
	if err != nil {
		return gateway.Config{}, fmt.Errorf("service.timeouts.two_factor: %w", err)
	}
	out.RestartPause, err = model.Duration(timeouts.RestartPause, gateway.DefaultRestartPause)
	if err != nil {
		return gateway.Config{}, fmt.Errorf("service.timeouts.restart_pause: %w", err)
	}
	return out, nil
}
