package discord

import (
	"context"
	"errors"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/guild-mod-bot/internal/app/service"
)

// Client implementa service.GuildClient sobre *discordgo.Session.
// Acá se convierten los ids opacos uint64 del core a los strings de
// discordgo, y los 404 de "ya no existe" se tratan como no-op en los
// reverts (el estado de Discord cambia por su cuenta).
type Client struct {
	s *discordgo.Session
}

func NewClient(s *discordgo.Session) *Client { return &Client{s: s} }

func (c *Client) Roles(ctx context.Context, guildID uint64) ([]service.RoleInfo, error) {
	roles, err := c.s.GuildRoles(u2s(guildID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]service.RoleInfo, 0, len(roles))
	for _, r := range roles {
		out = append(out, service.RoleInfo{ID: s2u(r.ID), Name: r.Name})
	}
	return out, nil
}

func (c *Client) CreateRole(ctx context.Context, guildID uint64, name string) (service.RoleInfo, error) {
	var noPerms int64
	r, err := c.s.GuildRoleCreate(u2s(guildID), &discordgo.RoleParams{
		Name:        name,
		Permissions: &noPerms,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return service.RoleInfo{}, err
	}
	return service.RoleInfo{ID: s2u(r.ID), Name: r.Name}, nil
}

func (c *Client) Channels(ctx context.Context, guildID uint64) ([]service.ChannelInfo, error) {
	chans, err := c.s.GuildChannels(u2s(guildID), discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]service.ChannelInfo, 0, len(chans))
	for _, ch := range chans {
		out = append(out, channelInfo(ch))
	}
	return out, nil
}

func (c *Client) Channel(ctx context.Context, channelID uint64) (service.ChannelInfo, error) {
	ch, err := c.s.Channel(u2s(channelID), discordgo.WithContext(ctx))
	if err != nil {
		return service.ChannelInfo{}, err
	}
	return channelInfo(ch), nil
}

func (c *Client) SetRoleOverwrite(ctx context.Context, channelID, roleID uint64, allow, deny int64) error {
	return c.s.ChannelPermissionSet(u2s(channelID), u2s(roleID),
		discordgo.PermissionOverwriteTypeRole, allow, deny, discordgo.WithContext(ctx))
}

func (c *Client) DeleteOverwrite(ctx context.Context, channelID, targetID uint64) error {
	err := c.s.ChannelPermissionDelete(u2s(channelID), u2s(targetID), discordgo.WithContext(ctx))
	return ignoreNotFound(err)
}

func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID uint64) error {
	return c.s.GuildMemberRoleAdd(u2s(guildID), u2s(userID), u2s(roleID), discordgo.WithContext(ctx))
}

func (c *Client) RemoveRole(ctx context.Context, guildID, userID, roleID uint64) error {
	err := c.s.GuildMemberRoleRemove(u2s(guildID), u2s(userID), u2s(roleID), discordgo.WithContext(ctx))
	return ignoreNotFound(err)
}

func (c *Client) Ban(ctx context.Context, guildID, userID uint64, reason string) error {
	return c.s.GuildBanCreateWithReason(u2s(guildID), u2s(userID), reason, 0, discordgo.WithContext(ctx))
}

func (c *Client) Unban(ctx context.Context, guildID, userID uint64) error {
	err := c.s.GuildBanDelete(u2s(guildID), u2s(userID), discordgo.WithContext(ctx))
	return ignoreNotFound(err)
}

func (c *Client) Kick(ctx context.Context, guildID, userID uint64, reason string) error {
	return c.s.GuildMemberDeleteWithReason(u2s(guildID), u2s(userID), reason, discordgo.WithContext(ctx))
}

// ---------- helpers ----------

func channelInfo(ch *discordgo.Channel) service.ChannelInfo {
	info := service.ChannelInfo{ID: s2u(ch.ID)}
	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		info.Kind = service.ChannelText
	case discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildStageVoice:
		info.Kind = service.ChannelVoice
	case discordgo.ChannelTypeGuildCategory:
		info.Kind = service.ChannelCategory
	default:
		info.Kind = service.ChannelOther
	}
	for _, ow := range ch.PermissionOverwrites {
		info.Overwrites = append(info.Overwrites, service.OverwriteState{
			TargetID: s2u(ow.ID),
			IsRole:   ow.Type == discordgo.PermissionOverwriteTypeRole,
			Allow:    ow.Allow,
			Deny:     ow.Deny,
		})
	}
	return info
}

// ignoreNotFound: revertir algo que Discord ya no tiene es éxito.
func ignoreNotFound(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == 404 {
		return nil
	}
	return err
}

func u2s(id uint64) string { return strconv.FormatUint(id, 10) }

func s2u(id string) uint64 {
	v, _ := strconv.ParseUint(id, 10, 64)
	return v
}
