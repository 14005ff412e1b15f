package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"unimarket/internal/adapter/api"
	"unimarket/internal/adapter/api/handler"
	apimiddleware "unimarket/internal/adapter/api/middleware"
	"unimarket/internal/adapter/api/router"
	"unimarket/internal/adapter/repository"
	"unimarket/internal/infrastructure/firebase"
	"unimarket/internal/infrastructure/websocket"
	"unimarket/internal/usecase"
	"unimarket/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption

	// Service account from env (production) or file (local development);
	// application default credentials otherwise.
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient, cfg.RequestTimeout)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient, cfg.RequestTimeout)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient, cfg.RequestTimeout)

	firebaseAuth := firebase.NewAuthClient(authClient)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	userUseCase := usecase.NewUserUseCase(userRepo)
	listingUseCase := usecase.NewListingUseCase(listingRepo)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, listingRepo, cfg.Currency)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	chatHandler := handler.NewChatHandler(chatUseCase)
	listingHandler := handler.NewListingHandler(listingUseCase)
	userHandler := handler.NewUserHandler(userUseCase, firebaseAuth)
	wsHandler := handler.NewWebSocketHandler(wsManager, firebaseAuth, chatUseCase, userUseCase, chatRepo)
	healthHandler := handler.NewHealthHandler()

	router.Setup(e, authMiddleware, chatHandler, listingHandler, userHandler, wsHandler, healthHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
