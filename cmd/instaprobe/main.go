// Command instaprobe collects public metadata from an Instagram profile.
//
// Usage:
//
//	instaprobe someone
//	instaprobe @someone --download-images --exif-geolocate --json-out someone.json
//	instaprobe https://www.instagram.com/someone/ --max-posts 30
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
