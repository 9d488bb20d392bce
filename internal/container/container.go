package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/config"
	"github.com/oksasatya/pulse-correction-bot/internal/application"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/search"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gcsClient   *storage.Client
	rabbitPub   *helpers.RabbitPublisher
	esClient    *elasticsearch.Client

	users      repo.UserRepository
	userMirror *search.UserMirror
	lanes      *bot.Lanes
	albums     *application.AlbumAggregator
)

func SetConfig(c *config.Config)              { cfg = c }
func GetConfig() *config.Config               { return cfg }
func SetLogger(l *logrus.Logger)              { logger = l }
func GetLogger() *logrus.Logger               { return logger }
func SetPGPool(p *pgxpool.Pool)               { pgPool = p }
func GetPGPool() *pgxpool.Pool                { return pgPool }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetGCS(s *storage.Client)                { gcsClient = s }
func GetGCS() *storage.Client                 { return gcsClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

func SetUsers(r repo.UserRepository)           { users = r }
func GetUsers() repo.UserRepository            { return users }
func SetUserMirror(m *search.UserMirror)       { userMirror = m }
func GetUserMirror() *search.UserMirror        { return userMirror }
func SetLanes(l *bot.Lanes)                    { lanes = l }
func GetLanes() *bot.Lanes                     { return lanes }
func SetAlbums(a *application.AlbumAggregator) { albums = a }
func GetAlbums() *application.AlbumAggregator  { return albums }
