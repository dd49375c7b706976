//go:build !windows

package gateway

func newHostPlatform() Platform {
	return Platform{
		Launcher:       "start-gateway.sh",
		MakeExecutable: true,
		Terminate:      TerminateHelpers,
	}
}
