//go:build windows

package gateway

func newHostPlatform() Platform {
	return Platform{
		Launcher:  "start-gateway.bat",
		Terminate: KillByDisplayName,
	}
}
