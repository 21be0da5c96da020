package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/affiliateboard/backend/internal/dto"
)

var (
	listCategory string
	listSort     string
	listLimit    int
)

var programsCmd = &cobra.Command{
	Use:   "programs",
	Short: "Browse the public listing",
}

var listProgramsCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List programs in ranking order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := url.Values{}
		if len(args) == 1 {
			params.Set("q", args[0])
		}
		if listCategory != "" {
			params.Set("category", listCategory)
		}
		if listSort != "" {
			params.Set("sort", listSort)
		}
		params.Set("limit", strconv.Itoa(listLimit))

		var resp dto.ProgramListResponse
		if err := getJSON("/api/programs?"+params.Encode(), &resp); err != nil {
			return err
		}
		if output == "json" {
			return printResult(resp)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "RANK\tNAME\tCATEGORY\tSCORE\tFEATURED\tVIEWS\tCLICKS")
		for i, p := range resp.Programs {
			featured := ""
			if p.IsFeatured {
				featured = "yes"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%s\t%d\t%d\n", i+1, p.Name, p.Category, p.TrendingScore, featured, p.TotalViews, p.Clicks)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d of %d programs\n", len(resp.Programs), resp.Total)
		return nil
	},
}

func init() {
	listProgramsCmd.Flags().StringVar(&listCategory, "category", "", "Only this category")
	listProgramsCmd.Flags().StringVar(&listSort, "sort", "", "trending (default), newest or name")
	listProgramsCmd.Flags().IntVar(&listLimit, "limit", 20, "Number of programs")
	programsCmd.AddCommand(listProgramsCmd)
}

func getJSON(path string, dst any) error {
	resp, err := http.Get(strings.TrimSuffix(apiURL, "/") + path)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
