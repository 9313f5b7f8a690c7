package testing

import "regexp"

// Output returns a successful response carrying stdout.
func Output(stdout string) CommandResponse {
	return CommandResponse{Stdout: []byte(stdout)}
}

// WithOutputs registers successful responses keyed by exact command.
func WithOutputs(client *MockClient, outputs map[string]string) {
	for cmd, out := range outputs {
		client.SetCommandResponse("^"+regexp.QuoteMeta(cmd)+"$", Output(out))
	}
}
