package config

// Content repository layout. Many content APIs cannot represent an empty
// directory, so both directories are seeded with a .gitkeep at provisioning.
const (
	PostsDir = "posts"
	MediaDir = "media"

	RepoConfigFile = "config.json"
	RepoReadmeFile = "README.md"
	RepoKeepFile   = ".gitkeep"

	// RepoNameSuffix is appended to the user's handle to derive their
	// content repository name.
	RepoNameSuffix = "-pulsive-content"
)

// Environment variable names for process-wide secrets.
const (
	EnvEncryptionKey = "ENCRYPTION_KEY"
	EnvClerkAPIKey   = "CLERK_API"
	EnvS3AccessKey   = "S3_ACCESS_KEY_ID"
	EnvS3SecretKey   = "S3_ACCESS_KEY_SECRET"
)
