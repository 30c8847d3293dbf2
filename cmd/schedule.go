package cmd

import (
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func scheduleCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "schedule",
		Short: "run the dedup, link and purge passes on their schedules",
		Run: func(cmd *cobra.Command, args []string) {
			engine := openEngine()
			defer engine.Close()

			scheduler := engine.Scheduler()
			if err := scheduler.Start(); err != nil {
				logrus.Error(err)
				return
			}

			sigs := make(chan os.Signal, 1)
			signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)
			sig := <-sigs
			logrus.Infof("received signal %s, shutting down", sig)

			scheduler.Stop()
		},
	}

	return command
}
