package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Retención: purga marcadores de overwrites ya revertidos (soft-deleted
// por UnConfigureGuild) después de una semana. Las infracciones y el log
// de moderación NUNCA se borran.
func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "no DATABASE_URL", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, _ = pool.Exec(cctx, `
DELETE FROM configured_overwrites
 WHERE removed_at IS NOT NULL
   AND removed_at < now() - INTERVAL '7 days';`)

	return "ok", nil
}

func main() { lambda.Start(handler) }
