package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jose-valero/guild-mod-bot/internal/domain"
)

type ReconcilerServiceSuite struct {
	suite.Suite
	ctx     context.Context
	client  *fakeGuildClient
	tracked *fakeOverwriteStore
	rec     *ReconcilerService
}

func TestReconcilerServiceSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerServiceSuite))
}

func (s *ReconcilerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.client = newFakeGuildClient()
	s.tracked = newFakeOverwriteStore()
	s.rec = NewReconcilerService(s.client, s.tracked, "Muted (bot)")
	s.rec.retryBase = time.Millisecond
}

func (s *ReconcilerServiceSuite) TestAutoConfigureGuild() {
	s.client.addChannel(100, ChannelText)
	s.client.addChannel(101, ChannelVoice)
	s.client.addChannel(102, ChannelCategory) // categorías no se tocan
	s.client.addChannel(103, ChannelOther)

	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))

	// rol creado una vez, un overwrite por canal text/voice
	s.Equal(1, s.client.roleCreates)
	s.Equal(2, s.client.setCalls)
	s.Equal(2, s.tracked.activeCount(1))

	text := s.client.channels[100].Overwrites
	s.Require().Len(text, 1)
	s.Equal(int64(0), text[0].Allow)
	s.Equal(int64(textDeny), text[0].Deny)

	voice := s.client.channels[101].Overwrites
	s.Require().Len(voice, 1)
	s.Equal(int64(voiceDeny), voice[0].Deny)

	s.Empty(s.client.channels[102].Overwrites)
	s.Empty(s.client.channels[103].Overwrites)
}

// Segunda corrida con el estado ya aplicado = cero escrituras.
func (s *ReconcilerServiceSuite) TestAutoConfigureIdempotent() {
	s.client.addChannel(100, ChannelText)
	s.client.addChannel(101, ChannelVoice)

	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))
	writes := s.client.setCalls
	creates := s.client.roleCreates

	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))
	s.Equal(writes, s.client.setCalls)
	s.Equal(creates, s.client.roleCreates)
}

// Reutiliza un rol de mute preexistente en vez de crear otro.
func (s *ReconcilerServiceSuite) TestReusesExistingMuteRole() {
	s.client.roles = append(s.client.roles, RoleInfo{ID: 555, Name: "Muted (bot)"})
	s.client.addChannel(100, ChannelText)

	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))
	s.Zero(s.client.roleCreates)
	s.Equal(uint64(555), s.client.channels[100].Overwrites[0].TargetID)
}

func (s *ReconcilerServiceSuite) TestPartialFailureContinues() {
	s.client.addChannel(100, ChannelText)
	s.client.addChannel(101, ChannelText)
	s.client.addChannel(102, ChannelText)
	s.client.failSet[101] = errors.New("missing access")

	err := s.rec.AutoConfigureGuild(s.ctx, 1)
	var perr *domain.PartialConfigurationError
	s.Require().ErrorAs(err, &perr)
	s.Equal(uint64(1), perr.GuildID)
	s.Equal(1, perr.Failed)

	// los otros dos canales quedaron configurados y trackeados igual
	s.Len(s.client.channels[100].Overwrites, 1)
	s.Len(s.client.channels[102].Overwrites, 1)
	s.Equal(2, s.tracked.activeCount(1))

	// destrabado el canal, la siguiente corrida completa el resto
	delete(s.client.failSet, 101)
	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))
	s.Equal(3, s.tracked.activeCount(1))
}

func (s *ReconcilerServiceSuite) TestAutoConfigureChannel() {
	s.client.addChannel(100, ChannelText)
	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))

	// llega un canal nuevo después del setup
	s.client.addChannel(200, ChannelVoice)
	s.Require().NoError(s.rec.AutoConfigureChannel(s.ctx, 1, 200))
	s.Len(s.client.channels[200].Overwrites, 1)
	s.Equal(2, s.tracked.activeCount(1))
}

func (s *ReconcilerServiceSuite) TestForgetChannelDropsTrackingOnly() {
	s.client.addChannel(100, ChannelText)
	s.client.addChannel(101, ChannelText)
	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))
	s.Require().Equal(2, s.tracked.activeCount(1))

	// el canal 100 fue borrado en Discord
	s.Require().NoError(s.rec.ForgetChannel(s.ctx, 1, 100))
	s.Equal(1, s.tracked.activeCount(1))
	// sin llamadas de borrado a Discord: no hay nada que revertir
	s.Zero(s.client.deleteCalls)
}

func (s *ReconcilerServiceSuite) TestUnConfigureRemovesOnlyTracked() {
	s.client.addChannel(100, ChannelText)
	s.client.addChannel(101, ChannelVoice)
	// overwrite ajeno pre-existente en el mismo canal
	s.client.channels[100].Overwrites = append(s.client.channels[100].Overwrites,
		OverwriteState{TargetID: 777, IsRole: true, Deny: 1})

	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))
	s.Require().NoError(s.rec.UnConfigureGuild(s.ctx, 1))

	s.Zero(s.tracked.activeCount(1))
	// el overwrite ajeno sobrevive intacto
	s.Require().Len(s.client.channels[100].Overwrites, 1)
	s.Equal(uint64(777), s.client.channels[100].Overwrites[0].TargetID)
	s.Empty(s.client.channels[101].Overwrites)
}

func (s *ReconcilerServiceSuite) TestUnConfigurePartialFailure() {
	s.client.addChannel(100, ChannelText)
	s.client.addChannel(101, ChannelText)
	s.Require().NoError(s.rec.AutoConfigureGuild(s.ctx, 1))

	s.client.failDelete[100] = errors.New("missing access")
	err := s.rec.UnConfigureGuild(s.ctx, 1)
	var perr *domain.PartialConfigurationError
	s.Require().ErrorAs(err, &perr)
	s.Equal(1, perr.Failed)

	// la fila que falló sigue activa para el próximo intento
	s.Equal(1, s.tracked.activeCount(1))
}

func (s *ReconcilerServiceSuite) TestApplyEffect() {
	s.Run("mute provisions role and assigns it", func() {
		err := s.rec.ApplyEffect(s.ctx, domain.Infraction{ID: 1, GuildID: 1, SubjectID: 42, Type: domain.InfractionMute})
		s.Require().NoError(err)
		s.Equal(1, s.client.roleCreates)
		roleID := s.client.roles[0].ID
		s.True(s.client.memberRoles[42][roleID])
	})

	s.Run("ban and kick", func() {
		err := s.rec.ApplyEffect(s.ctx, domain.Infraction{ID: 2, GuildID: 1, SubjectID: 43, Type: domain.InfractionBan, Reason: "raid"})
		s.Require().NoError(err)
		s.True(s.client.banned[43])

		err = s.rec.ApplyEffect(s.ctx, domain.Infraction{ID: 3, GuildID: 1, SubjectID: 44, Type: domain.InfractionKick, Reason: "spam"})
		s.Require().NoError(err)
		s.Equal([]uint64{44}, s.client.kicked)
	})

	s.Run("types without platform effect are no-ops", func() {
		calls := s.client.setCalls
		err := s.rec.ApplyEffect(s.ctx, domain.Infraction{ID: 4, GuildID: 1, SubjectID: 45, Type: domain.InfractionWarning})
		s.Require().NoError(err)
		s.Equal(calls, s.client.setCalls)
		s.Empty(s.client.memberRoles[45])
	})
}

func (s *ReconcilerServiceSuite) TestRevertEffect() {
	s.Run("mute removes role", func() {
		inf := domain.Infraction{ID: 1, GuildID: 1, SubjectID: 42, Type: domain.InfractionMute}
		s.Require().NoError(s.rec.ApplyEffect(s.ctx, inf))
		roleID := s.client.roles[0].ID

		s.Require().NoError(s.rec.RevertEffect(s.ctx, inf))
		s.False(s.client.memberRoles[42][roleID])
	})

	s.Run("mute with role already gone is a no-op", func() {
		s.client.roles = nil
		creates := s.client.roleCreates
		err := s.rec.RevertEffect(s.ctx, domain.Infraction{ID: 1, GuildID: 1, SubjectID: 42, Type: domain.InfractionMute})
		s.Require().NoError(err)
		// revert nunca crea el rol
		s.Equal(creates, s.client.roleCreates)
	})

	s.Run("ban unbans", func() {
		inf := domain.Infraction{ID: 2, GuildID: 1, SubjectID: 43, Type: domain.InfractionBan}
		s.Require().NoError(s.rec.ApplyEffect(s.ctx, inf))
		s.Require().NoError(s.rec.RevertEffect(s.ctx, inf))
		s.False(s.client.banned[43])
	})
}
