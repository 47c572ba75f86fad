package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osmem/heapkit/heap"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the available allocators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
}

type kindInfo struct {
	Kind       string   `json:"kind"`
	Summary    string   `json:"summary"`
	Strategies []string `json:"strategies,omitempty"`
}

func runInfo() error {
	infos := []kindInfo{
		{Kind: heap.KindBump.String(), Summary: "monotonic bump pointer with single-hole reuse"},
		{Kind: heap.KindLeak.String(), Summary: "monotonic, never reclaims"},
		{Kind: heap.KindNode.String(), Summary: "fixed-size slots with adjacent-run spanning"},
		{Kind: heap.KindFreeList.String(), Summary: "intrusive free list with split and coalesce",
			Strategies: []string{
				heap.FirstFit.String(), heap.BestFit.String(),
				heap.WorstFit.String(), heap.NextFit.String(),
			}},
		{Kind: heap.KindBuddy.String(), Summary: "binary buddy tree with waterfall merging"},
	}
	if jsonOut {
		return printJSON(infos)
	}
	for _, in := range infos {
		fmt.Printf("%-10s %s\n", in.Kind, in.Summary)
		for _, s := range in.Strategies {
			fmt.Printf("           strategy: %s\n", s)
		}
	}
	return nil
}
