package main

import (
	"context"
	"fitpickapi/dbhelper"
	"fitpickapi/services"
	"fitpickapi/tasks"
	"log"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
)

func runScheduler() {

	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")}, &asynq.SchedulerOpts{

		LogLevel: asynq.InfoLevel,
	})

	// Schedule daily tasks with different cron expressions
	scheduled := []struct {
		cron string
		task *asynq.Task
		desc string
	}{
		{
			cron: "0 7 * * *", // 7:00 AM daily, before people dress
			task: tasks.NewDailyOutfitTask(),
			desc: "Daily outfit suggestions",
		},
	}

	// Register all tasks
	for _, t := range scheduled {
		entryID, err := scheduler.Register(t.cron, t.task)
		if err != nil {
			log.Fatalf("Failed to register task '%s': %v", t.desc, err)
		}
		log.Printf("Registered task '%s' with ID: %s, cron: %s", t.desc, entryID, t.cron)
	}

	log.Println("Starting scheduler...")
	if err := scheduler.Run(); err != nil {
		log.Fatalf("Scheduler failed: %v", err)
	}
}

func main() {
	_ = godotenv.Load()
	// Initialize asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: os.Getenv("ASYNC_BROKER_ADDRESS")},
		asynq.Config{Concurrency: 10, Queues: map[string]int{
			"analysis": 7,
			"default":  3,
		}},
	)
	awsService := &services.AWSService{}
	analyzer := &services.GeminiGarmentAnalyzer{}
	err := awsService.InitPresignClient(context.Background())
	if err != nil {
		log.Fatal("[Queue] Failed to initialize AWS provider: S3")
	}
	app, err := firebase.NewApp(context.Background(), nil)
	if err != nil {
		log.Fatalf("error initializing firebase app: %v\n", err)
		return
	}
	// Set up task handler
	mux := asynq.NewServeMux()
	db := dbhelper.SetupDB()
	mux.HandleFunc(tasks.TypeGarmentAnalysis, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleGarmentAnalysisTask(ctx, t, db, analyzer, awsService, app)
	})
	mux.HandleFunc(tasks.TypeWardrobeReanalysis, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleWardrobeReanalysisTask(ctx, t, db)
	})
	mux.HandleFunc(tasks.TypeDailyOutfit, func(ctx context.Context, t *asynq.Task) error {
		return tasks.HandleDailyOutfitTask(ctx, t, db, app)
	})

	go runScheduler()
	// Run the worker
	if err := srv.Run(mux); err != nil {
		log.Fatal(err)
	}
}
