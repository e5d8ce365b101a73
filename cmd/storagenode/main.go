package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/planetstore/gateway/pkg/log"
	"github.com/planetstore/gateway/pkg/storagenode"
	"github.com/spf13/cobra"
)

func main() {
	var (
		listenAddr string
		dataDir    string
	)

	root := &cobra.Command{
		Use:   "storagenode",
		Short: "Runs a single PlanetStore storage node",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
			node := storagenode.New(dataDir)
			logger := log.WithComponent("storagenode")
			logger.Info().Str("addr", listenAddr).Str("data_dir", dataDir).Msg("starting storage node")
			return http.ListenAndServe(listenAddr, node.Router())
		},
	}

	root.Flags().StringVar(&listenAddr, "listen", ":9001", "address to listen on")
	root.Flags().StringVar(&dataDir, "data-dir", "./data/node", "directory to store shard files")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
