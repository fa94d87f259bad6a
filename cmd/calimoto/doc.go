// Command calimoto lists the routes and tracks of a Calimoto account and
// exports them as GPX files.
//
// Credentials come from CALIMOTO_USERNAME/CALIMOTO_PASSWORD, a .env file or
// a .credentials JSON file in the working directory:
//
//	calimoto login
//	calimoto list tracks
//	calimoto export tracks --index 1 --index 3 --dir ./gpx
//	calimoto export routes --all
package main
