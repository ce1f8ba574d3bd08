package pulsewatch

// Version is the build version, set at link time:
//
//	go build -ldflags "-X github.com/jpalmerr/pulsewatch.Version=v1.2.3"
var Version = "dev"

// defaultUserAgent is sent when no User-Agent is configured.
func defaultUserAgent() string {
	return "pulsewatch/" + Version
}
