package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	DatabaseURL  string
	DiscordToken string
	DiscordGuild string
	AdminSecret  string // header para el HTTP admin
	HTTPAddr     string // opcional, default :8080

	// Roles con permiso de moderación además de Administrator/Owner
	ModRoleIDs []string

	// Nombre del rol de mute que provisiona la reconciliación
	MuteRoleName string
}

func Load() Config {
	get := func(k string, req bool) string {
		v := os.Getenv(k)
		if v == "" && req {
			log.Fatalf("faltante env %s", k)
		}
		return v
	}

	cfg := Config{
		DatabaseURL:  get("DATABASE_URL", true),
		DiscordToken: get("DISCORD_BOT_TOKEN", true),
		DiscordGuild: get("DISCORD_GUILD_ID", true),
		AdminSecret:  get("ADMIN_SECRET", false),
		HTTPAddr:     get("HTTP_ADDR", false),
		MuteRoleName: get("MUTE_ROLE_NAME", false),
	}
	if raw := get("MOD_ROLE_IDS", false); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				cfg.ModRoleIDs = append(cfg.ModRoleIDs, id)
			}
		}
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MuteRoleName == "" {
		cfg.MuteRoleName = "Muted (bot)"
	}
	return cfg
}
