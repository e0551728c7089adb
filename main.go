package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskboard-api/broadcast"
	"taskboard-api/handlers"
	"taskboard-api/logging"
	"taskboard-api/repositories"
	"taskboard-api/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func mongoURI() string {
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		return uri
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASS")
	host := os.Getenv("MONGO_HOST")
	if host == "" {
		host = "cluster0.mongodb.net"
	}
	return fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority",
		url.QueryEscape(dbUser), url.QueryEscape(dbPass), host)
}

func main() {
	logging.InitLogger()
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting taskboard API...")

	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI()))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	// The health route serves regardless of store connectivity, so a failed
	// ping is logged but does not stop the process.
	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Errorf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	} else {
		logging.Logger.Info("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB.")
	}

	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "ToDoDB"
	}
	collectionName := os.Getenv("MONGO_COLLECTION")
	if collectionName == "" {
		collectionName = "taskList"
	}
	tasksCollection := client.Database(dbName).Collection(collectionName)
	logging.Logger.Infof("Event ID: DB_COLLECTION_SET, Description: Using MongoDB collection: %s/%s", dbName, collectionName)

	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		logging.Logger.Infof("Event ID: CACHE_ENABLED, Description: Task list caching enabled via redis at %s", addr)
	}
	cacheTTL := 30 * time.Second
	if val := os.Getenv("CACHE_TTL_SECONDS"); val != "" {
		if secs, err := strconv.Atoi(val); err == nil && secs > 0 {
			cacheTTL = time.Duration(secs) * time.Second
		}
	}

	repo := repositories.NewTaskRepository(tasksCollection)
	store := repositories.NewCache(repo, redisClient, cacheTTL)
	broker := broadcast.NewBroker()
	taskService := services.NewTaskService(store, broker)
	taskHandler := handlers.NewTaskHandler(taskService)

	router := handlers.NewRouter(taskHandler, broker)
	corsRouter := enableCORS(router)

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "5000"
	}

	serverAddress := fmt.Sprintf(":%s", serverPort)
	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", serverAddress)

	if err := http.ListenAndServe(serverAddress, corsRouter); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
