package event

import (
	"reflect"
	"testing"
)

func TestCommandPaths(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{
			"simple target",
			"rm -rf /var/data",
			[]string{"/var/data"},
		},
		{
			"skips program name and flags",
			"/usr/bin/rm --force /tmp/x",
			[]string{"/tmp/x"},
		},
		{
			"redirect target",
			"echo hi > /tmp/out",
			[]string{"/tmp/out"},
		},
		{
			"pipeline",
			"cat ~/.ssh/id_rsa | base64",
			[]string{"~/.ssh/id_rsa"},
		},
		{
			"quoted path",
			`rm "/tmp/with space/file"`,
			[]string{"/tmp/with space/file"},
		},
		{
			"dotfile",
			"cat .env",
			[]string{".env"},
		},
		{
			"expansion is opaque",
			"rm $HOME/.ssh/id_rsa",
			nil,
		},
		{
			"command substitution is opaque",
			"rm $(get_target)",
			nil,
		},
		{
			"paths inside substitutions still harvested",
			"echo $(cat /etc/passwd)",
			[]string{"/etc/passwd"},
		},
		{
			"no paths",
			"ls",
			nil,
		},
		{
			"deduplicated",
			"cp /tmp/a /tmp/a",
			[]string{"/tmp/a"},
		},
		{
			"unparseable",
			"if then fi ((",
			nil,
		},
		{
			"empty",
			"   ",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommandPaths(tt.command)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CommandPaths(%q) = %v, want %v", tt.command, got, tt.want)
			}
		})
	}
}
