// Command seed fills the configured store with fake users, posts and comments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"blogapi/internal/app/bootstrap"
	"blogapi/internal/app/service"
	"blogapi/internal/common/security"
	"blogapi/internal/platform/config"
	"blogapi/internal/platform/logging"

	"github.com/brianvoe/gofakeit/v7"
)

const seedPassword = "password123"

func main() {
	users := flag.Int("users", 5, "number of users to create")
	posts := flag.Int("posts", 4, "posts per user")
	comments := flag.Int("comments", 3, "comments per post")
	seed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	flag.Parse()

	config.Load()
	cfg := config.AppConfig
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	security.InitJWT(cfg.JWTKey, cfg.JWTExp)

	if cfg.StoreDriver == config.DriverMemory {
		logger.Error("seeding the memory store has no lasting effect, pick postgres or mongo")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	backends, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		logger.Error("could not initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer backends.Close()

	s := &seeder{
		faker:    gofakeit.New(*seed),
		auth:     service.NewAuthService(backends.Store.Users, backends.Revocations, logger),
		posts:    service.NewPostService(backends.Store, logger),
		comments: service.NewCommentService(backends.Store, logger),
		logger:   logger,
	}
	if err := s.run(ctx, *users, *posts, *comments); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type seeder struct {
	faker    *gofakeit.Faker
	auth     *service.AuthService
	posts    *service.PostService
	comments *service.CommentService
	logger   *slog.Logger
}

func (s *seeder) run(ctx context.Context, userCount, postsPerUser, commentsPerPost int) error {
	authors := make([]*service.Identity, 0, userCount)
	for range userCount {
		username := strings.ToLower(s.faker.LetterN(8)) + s.faker.DigitN(4)
		res, err := s.auth.Register(ctx, service.RegisterRequest{
			Username: username,
			Email:    username + "@example.com",
			Password: seedPassword,
		})
		if err != nil {
			return err
		}
		authors = append(authors, &service.Identity{UserID: res.User.ID, Username: res.User.Username})
	}

	var postCount, commentCount int
	for _, author := range authors {
		for range postsPerUser {
			published := s.faker.Float32() < 0.8
			post, err := s.posts.Create(ctx, author, service.CreatePostRequest{
				Title:     s.faker.Paragraph(1, 1, 6, " "),
				Content:   s.faker.Paragraph(3, 4, 12, "\n\n"),
				Tags:      []string{s.faker.BuzzWord(), s.faker.HackerNoun()},
				Published: &published,
			})
			if err != nil {
				return err
			}
			postCount++
			if !published {
				continue
			}

			for range commentsPerPost {
				commenter := authors[s.faker.IntN(len(authors))]
				if _, err := s.comments.Create(ctx, commenter, post.ID, service.CommentRequest{
					Content: s.faker.Paragraph(1, 2, 12, " "),
				}); err != nil {
					return err
				}
				commentCount++
			}

			fan := authors[s.faker.IntN(len(authors))]
			if fan.UserID != author.UserID {
				if _, err := s.posts.Like(ctx, fan, post.ID); err != nil {
					return err
				}
			}
		}
	}

	s.logger.Info("seed complete",
		slog.Int("users", len(authors)),
		slog.Int("posts", postCount),
		slog.Int("comments", commentCount),
		slog.String("password", seedPassword),
	)
	return nil
}
