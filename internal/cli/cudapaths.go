package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/otaranenko/ukscribe/internal/nvidia"
	"github.com/spf13/cobra"
)

func newCudaPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cuda-paths",
		Short: "Show CUDA library directories and search-path diagnostics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if runtime.GOOS != "windows" {
				fmt.Fprintf(out, "Library path repair is a no-op on %s; nothing to register.\n", runtime.GOOS)
				return nil
			}

			roots := nvidia.SitePackagesRoots()
			if len(roots) == 0 {
				fmt.Fprintln(out, "No Python site-packages roots found; is Python on PATH?")
				return nil
			}

			fmt.Fprintln(out, "Site-packages roots:")
			for _, root := range roots {
				fmt.Fprintf(out, "  %s\n", root)
			}

			result := nvidia.Repair(nvidia.Snapshot{
				GOOS:  runtime.GOOS,
				Path:  os.Getenv("PATH"),
				Roots: roots,
			})

			if len(result.Added) == 0 {
				fmt.Fprintln(out, "No CUDA library directories found under nvidia/ subtrees.")
				return nil
			}

			fmt.Fprintln(out, "CUDA library directories:")
			for _, dir := range result.Added {
				fmt.Fprintf(out, "  %s\n", dir)
			}

			if result.Path == os.Getenv("PATH") {
				fmt.Fprintln(out, "PATH already contains every directory above.")
			} else {
				fmt.Fprintln(out, "These directories are prepended to PATH before transcription.")
			}

			return nil
		},
	}
}
