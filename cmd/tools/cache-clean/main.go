package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/lottosage/lottosage/internal/pkg/cache"
	"github.com/lottosage/lottosage/internal/pkg/config"
	"github.com/lottosage/lottosage/internal/pkg/models"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "Path to config file")
		action     = flag.String("action", "expired", "Action: expired, all")
		lottery    = flag.String("lottery", "", "Limit -action all to one game: ssq or dlt")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, closeStore, err := buildStore(cfg.Data)
	if err != nil {
		log.Fatalf("Failed to build cache store: %v", err)
	}
	defer closeStore()

	switch *action {
	case "expired":
		if err := store.ClearExpired(); err != nil {
			log.Fatalf("Failed to clear expired entries: %v", err)
		}
		fmt.Println("Expired cache entries cleared")
	case "all":
		game := models.GameType(*lottery)
		if *lottery != "" && !game.Valid() {
			log.Fatalf("Unknown lottery type: %s. Use: ssq, dlt", *lottery)
		}
		if err := store.ClearAll(game); err != nil {
			log.Fatalf("Failed to clear cache: %v", err)
		}
		if *lottery != "" {
			fmt.Printf("Cache cleared for %s\n", *lottery)
		} else {
			fmt.Println("Cache cleared for all games")
		}
	default:
		log.Fatalf("Unknown action: %s. Use: expired, all", *action)
	}
}

func buildStore(cfg config.DataConfig) (cache.Store, func(), error) {
	if cfg.Redis.Addr != "" {
		rs, err := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.TTL())
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { rs.Close() }, nil
	}
	fs, err := cache.NewFileStore(cfg.CacheDir, cfg.TTL())
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}
