package discord

import (
	"errors"
	"log"

	"github.com/bwmarrin/discordgo"
)

// Todas las respuestas del bot son efímeras: el flujo es siempre
// defer primero, followup después (los handlers pueden tardar >3s).

func deferEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("defer ephemeral: %v", err)
	}
	return err
}

// replyEphemeral manda el followup del defer. Si el webhook de la
// interacción no existe (10015: el defer nunca llegó), responde directo.
func replyEphemeral(s *discordgo.Session, ic *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(ic.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	if err == nil {
		return
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == 10015 {
		_ = s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
		return
	}
	log.Printf("reply ephemeral: %v", err)
}
