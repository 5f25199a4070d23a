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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/jukebox"
	"github.com/blnkfinance/jukebox/config"
	"github.com/blnkfinance/jukebox/database"
	"github.com/blnkfinance/jukebox/gateway"
	"github.com/blnkfinance/jukebox/internal/notification"
)

// Jukebox represents the CLI application, encapsulating the root Cobra command.
type Jukebox struct {
	cmd *cobra.Command
}

// jukeboxInstance holds the runtime instance and its configuration.
type jukeboxInstance struct {
	jukebox *jukebox.Jukebox
	cnf     *config.Configuration
}

// recoverPanic logs any panic and exits with an error status.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and builds the Jukebox before any command runs.
func preRun(app *jukeboxInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newJukebox, err := setupJukebox(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.jukebox = newJukebox
		app.cnf = cnf

		return nil
	}
}

// setupJukebox wires the in-memory data source and the Datatrans gateway.
func setupJukebox(cfg *config.Configuration) (*jukebox.Jukebox, error) {
	db := database.NewDataSource()
	gw := gateway.NewDatatransGateway(cfg.Gateway)

	newJukebox, err := jukebox.NewJukebox(db, gw)
	if err != nil {
		return nil, fmt.Errorf("error creating jukebox: %v", err)
	}
	return newJukebox, nil
}

// NewCLI creates the root command with the start, workers and config subcommands.
func NewCLI() *Jukebox {
	var configFile string
	j := &jukeboxInstance{}

	var rootCmd = &cobra.Command{
		Use:   "jukebox",
		Short: "Pay-per-request song jukebox",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./jukebox.json", "Configuration file for the jukebox")
	rootCmd.PersistentPreRunE = preRun(j, &configFile)

	rootCmd.AddCommand(serverCommands(j))
	rootCmd.AddCommand(workerCommands(j))
	rootCmd.AddCommand(configCommands(j))

	return &Jukebox{cmd: rootCmd}
}

func (w Jukebox) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
