/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/jukebox"
	"github.com/blnkfinance/jukebox/config"
)

func initializeWorkerServer(conf *config.Configuration, redisOption asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(
		redisOption,
		asynq.Config{
			Concurrency: conf.Queue.Concurrency,
			Queues:      map[string]int{jukebox.WEBHOOK_QUEUE: 1},
		},
	)
}

func initializeTaskHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(jukebox.WEBHOOK_QUEUE, jukebox.ProcessWebhook)
}

// startMonitoring serves the asynqmon dashboard under /monitoring.
func startMonitoring(conf *config.Configuration, redisOption asynq.RedisClientOpt) {
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOption,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			log.Fatalf("could not start asynqmon server: %v", err)
		}
	}()
}

// workerCommands defines the "workers" command that delivers queued webhooks.
func workerCommands(j *jukeboxInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start jukebox webhook workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := j.cnf

			if conf.Redis.Dns == "" {
				log.Fatal("workers need redis: set redis.dns in the config")
			}

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			redisOption, err := jukebox.RedisClientOpt(conf)
			if err != nil {
				log.Fatal(err)
			}

			srv := initializeWorkerServer(conf, redisOption)
			mux := asynq.NewServeMux()
			initializeTaskHandlers(mux)

			startMonitoring(conf, redisOption)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
