package cli

import (
	"context"
	"log"
	"time"

	"github.com/KirkDiggler/applebot/internal/clients/discordapi"
	"github.com/KirkDiggler/applebot/internal/config"
	"github.com/KirkDiggler/applebot/internal/handlers/discord"
	"github.com/KirkDiggler/applebot/internal/models"
	"github.com/KirkDiggler/applebot/internal/repositories/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewRunCommand creates the command that connects the bot and keeps it online
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect to Discord and serve messages until interrupted",
		Long: `Log in with DISCORD_EMAIL and DISCORD_PASSWORD, open the gateway and keep
the session alive, reconnecting whenever it drops.

When REDIS_ADDR is set every gateway session is recorded there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	api, err := discordapi.New(&discordapi.Config{
		BaseURL: cfg.Discord.APIURL,
	})
	if err != nil {
		return err
	}

	// Session history is optional
	var sessions session.Repository
	if cfg.Redis.Enabled() {
		redisClient := newRedisClient(cfg.Redis)
		defer redisClient.Close()

		sessionRepo, err := session.NewRedis(&session.Config{
			RedisClient: redisClient,
		})
		if err != nil {
			return err
		}
		sessions = sessionRepo
	}

	bot, err := discord.New(&discord.Config{
		Email:           cfg.Discord.Email,
		Password:        cfg.Discord.Password,
		OwnerID:         cfg.Discord.OwnerID,
		Game:            cfg.Discord.Game,
		API:             api,
		Sessions:        sessions,
		HeartbeatMargin: cfg.Discord.HeartbeatMargin,
		OnMessage:       handleMessage,
	})
	if err != nil {
		return err
	}

	log.Println("Bot is now running. Press CTRL-C to exit.")

	if err := bot.Run(ctx); err != nil {
		return err
	}

	log.Println("Bot has been shut down")
	return nil
}

func newRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// handleMessage stands in for the command host: it logs every message and
// answers a ping so the round trip can be checked by hand
func handleMessage(b *discord.Bot, msg *models.DiscordMessage) {
	log.Printf("Message from %s in %s: %s", msg.GetSender(), msg.ChannelID, msg.GetContent())

	if msg.GetContent() != "!ping" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply := "pong"
	if b.CheckElevatedStatus(ctx, msg) {
		reply = "pong (operator)"
	}

	if err := b.Send(ctx, &models.OutboundMessage{Origin: msg, Content: reply}); err != nil {
		log.Printf("Error sending reply: %v", err)
	}
}
