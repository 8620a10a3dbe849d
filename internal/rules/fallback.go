package rules

import "github.com/guruthechosen/openclaw-harness/internal/event"

// FallbackSet returns the built-in baseline rules used when the control
// plane is unreachable and no cached snapshot exists. It is deliberately
// small: broad strokes against the worst outcomes, not a policy.
func FallbackSet() []Rule {
	return []Rule{
		{
			Name:        "dangerous_rm",
			Description: "Blocks recursive or forced deletion of the home or root directory",
			Pattern:     `\brm\s+(-[a-zA-Z]*[rf][a-zA-Z]*\s+|--recursive\s+|--force\s+)+[^;&|]*(~|/)(\s|$|/)`,
			AppliesTo:   []event.ToolKind{event.KindExec},
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
		},
		{
			Name:        "api_key_exposure",
			Description: "Flags commands that read or print API credentials",
			Pattern:     `\b(cat|grep|echo|printenv|env)\b[^;&|]*\b(API[_-]?KEY|SECRET[_-]?KEY|ACCESS[_-]?TOKEN|AUTH[_-]?TOKEN)\b`,
			AppliesTo:   []event.ToolKind{event.KindExec},
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
		},
		{
			Name:        "ssh_key_access",
			Description: "Flags access to SSH private keys",
			Pattern:     `\.ssh/(id_[a-z0-9]+|authorized_keys|config)\b`,
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
		},
		{
			Name:        "wallet_access",
			Description: "Flags access to cryptocurrency wallet files",
			Pattern:     `(wallet\.dat|\.electrum|keystore/|/wallets?/)`,
			RiskLevel:   RiskCritical,
			Action:      ActionBlock,
		},
		{
			Name:        "curl_data_exfiltration",
			Description: "Flags uploads of local data to remote hosts",
			MatchType:   MatchKeyword,
			Keyword: &KeywordSpec{
				Contains: []string{"curl"},
				AnyOf:    []string{"--data", "-d ", "--upload-file", "-t ", "--form", "-f @"},
			},
			AppliesTo: []event.ToolKind{event.KindExec},
			RiskLevel: RiskWarning,
			Action:    ActionAlert,
		},
	}
}
