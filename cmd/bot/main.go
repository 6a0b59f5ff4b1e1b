package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordadapter "github.com/jose-valero/guild-mod-bot/internal/adapters/discord"
	"github.com/jose-valero/guild-mod-bot/internal/adapters/httpadmin"
	"github.com/jose-valero/guild-mod-bot/internal/app/service"
	"github.com/jose-valero/guild-mod-bot/internal/infra/config"
	"github.com/jose-valero/guild-mod-bot/internal/infra/storage"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatal("migrate:", err)
	}
	log.Println("✅ DB lista y migrada")

	// Repos
	infractions := storage.NewInfractionRepo(db)
	actions := storage.NewActionRepo(db)
	behavioursRepo := storage.NewBehaviourRepo(db)
	overwrites := storage.NewOverwriteRepo(db)

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildMembers
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	guildID := mustID(cfg.DiscordGuild)
	botID := mustID(s.State.User.ID)

	// Services
	client := discordadapter.NewClient(s)
	reconciler := service.NewReconcilerService(client, overwrites, cfg.MuteRoleName)
	engine := service.NewSearchEngine(infractions)
	moderation := service.NewModerationService(infractions, actions, engine, reconciler, guildID, botID)
	behaviours := service.NewBehaviourService(behavioursRepo)

	// Behaviour configuration: fail fast en el arranque (sin defaults)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := behaviours.Load(ctx); err != nil {
		cancel()
		log.Fatalf("behaviour configuration: %v", err)
	}
	cancel()
	log.Println("✅ behaviour configuration cargada")

	// Admin HTTP (health + reload)
	admin := httpadmin.New(cfg.AdminSecret, behaviours)
	go admin.Start(cfg.HTTPAddr)

	// Router
	r := discordadapter.NewRouter(s, cfg.DiscordGuild, moderation, reconciler, behaviours, cfg.ModRoleIDs)
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Printf("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// Expirador: mutes/bans con duración vencida pierden su efecto de
	// plataforma; el registro queda (ya no activo).
	go func() {
		t := time.NewTicker(30 * time.Second)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
			n, err := moderation.ExpireDue(ctx)
			cancel()
			if err != nil {
				log.Printf("expirador: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("expirador: %d infracciones procesadas", n)
			}
		}
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-stop
}

func mustID(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		log.Fatalf("id inválido: %q", s)
	}
	return v
}
