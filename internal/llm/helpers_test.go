package llm

import "calc-assistant/internal/config"

func configRemote(provider string) config.RemoteConfig {
	cfg := config.NewConfig().Remote
	cfg.Provider = provider
	return cfg
}
