package daemonrun

var (
	PublishedNotifier = publishedNotifier
	FailureNotifier   = failureNotifier
)
