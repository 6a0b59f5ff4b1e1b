package discord

import "github.com/bwmarrin/discordgo"

func reasonOpt() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Motivo (queda en el registro)",
		Required:    true,
	}
}

func userOpt() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "user",
		Description: "Usuario objetivo",
		Required:    true,
	}
}

func durationOpt() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "duration_minutes",
		Description: "Duración en minutos (vacío = permanente)",
	}
}

var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Latido del bot",
	},
	{
		Name:        "note",
		Description: "Registra una nota sobre un usuario (sólo mods)",
		Options:     []*discordgo.ApplicationCommandOption{userOpt(), reasonOpt()},
	},
	{
		Name:        "warn",
		Description: "Advierte a un usuario (sólo mods)",
		Options:     []*discordgo.ApplicationCommandOption{userOpt(), reasonOpt()},
	},
	{
		Name:        "mute",
		Description: "Mutea a un usuario vía rol de mute (sólo mods)",
		Options:     []*discordgo.ApplicationCommandOption{userOpt(), reasonOpt(), durationOpt()},
	},
	{
		Name:        "ban",
		Description: "Banea a un usuario (sólo mods)",
		Options:     []*discordgo.ApplicationCommandOption{userOpt(), reasonOpt(), durationOpt()},
	},
	{
		Name:        "kick",
		Description: "Expulsa a un usuario (sólo mods)",
		Options:     []*discordgo.ApplicationCommandOption{userOpt(), reasonOpt()},
	},
	{
		Name:        "rescind",
		Description: "Rescinde una infracción por id (sólo mods)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "id",
				Description: "Id de la infracción",
				Required:    true,
			},
			reasonOpt(),
		},
	},
	{
		Name:        "infractions",
		Description: "Historial de infracciones (sólo mods)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "search",
				Description: "Busca con filtros, orden y página",
				Options: []*discordgo.ApplicationCommandOption{
					{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Filtrar por usuario"},
					{
						Type: discordgo.ApplicationCommandOptionString, Name: "type", Description: "Filtrar por tipo",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "notice", Value: "notice"},
							{Name: "warning", Value: "warning"},
							{Name: "mute", Value: "mute"},
							{Name: "ban", Value: "ban"},
							{Name: "kick", Value: "kick"},
						},
					},
					{Type: discordgo.ApplicationCommandOptionBoolean, Name: "active", Description: "Sólo activas"},
					{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Substring del motivo"},
					{
						Type: discordgo.ApplicationCommandOptionString, Name: "sort", Description: "Campo de orden",
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "created (desc)", Value: "created_desc"},
							{Name: "created (asc)", Value: "created_asc"},
							{Name: "type", Value: "type"},
							{Name: "subject", Value: "subject"},
						},
					},
					{Type: discordgo.ApplicationCommandOptionInteger, Name: "page", Description: "Página (desde 0)"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "detail",
				Description: "Infracción + su log de moderación",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionInteger,
						Name:        "id",
						Description: "Id de la infracción",
						Required:    true,
					},
				},
			},
		},
	},
	{
		Name:        "modconfig",
		Description: "Configuración de moderación del guild (sólo mods)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "setup", Description: "Auto-configura rol de mute y overwrites"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "teardown", Description: "Revierte SOLO lo que configuró el bot"},
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "reload", Description: "Recarga behaviour configuration"},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "set",
				Description: "Setea una behaviour key y recarga",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type: discordgo.ApplicationCommandOptionString, Name: "key", Description: "Key de InvitePurging",
						Required: true,
						Choices: []*discordgo.ApplicationCommandOptionChoice{
							{Name: "IsEnabled", Value: "IsEnabled"},
							{Name: "ExemptRoleIds", Value: "ExemptRoleIds"},
							{Name: "LoggingChannelId", Value: "LoggingChannelId"},
						},
					},
					{
						Type: discordgo.ApplicationCommandOptionString, Name: "value",
						Description: "Valor crudo (bool, lista JSON de ids, o id de canal)",
						Required:    true,
					},
				},
			},
		},
	},
}
