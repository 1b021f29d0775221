package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for ibdreplay commands.

The completion script allows tab-completion of:
- Commands and subcommands
- Flags and their values
- File paths for input directories and SQL scripts

Installation Instructions:

Bash:
  # Add to ~/.bashrc or ~/.bash_profile:
  source <(ibdreplay completion bash)
  
  # Or save to file and source it:
  ibdreplay completion bash > ~/.ibdreplay-completion.bash
  echo 'source ~/.ibdreplay-completion.bash' >> ~/.bashrc

Zsh:
  # Add to ~/.zshrc:
  source <(ibdreplay completion zsh)
  
  # Or save to completion directory:
  ibdreplay completion zsh > "${fpath[1]}/_ibdreplay"
  
  # For custom location:
  ibdreplay completion zsh > ~/.ibdreplay-completion.zsh
  echo 'source ~/.ibdreplay-completion.zsh' >> ~/.zshrc

Fish:
  # Save to fish completion directory:
  ibdreplay completion fish > ~/.config/fish/completions/ibdreplay.fish

PowerShell:
  # Add to your PowerShell profile:
  ibdreplay completion powershell | Out-String | Invoke-Expression
  
  # Or save to profile:
  ibdreplay completion powershell >> $PROFILE

After installation, restart your shell or source the completion file.`,
	ValidArgs:          []string{"bash", "zsh", "fish", "powershell"},
	Args:               cobra.ExactArgs(1),
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()

		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(os.Stdout, true)
		case "zsh":
			return root.GenZshCompletion(os.Stdout)
		case "fish":
			return root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return fmt.Errorf("unsupported shell %q", args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
