package domain

// ProgressFunc reports download progress after every chunk.
// total is -1 when the server did not announce a length.
type ProgressFunc func(received, total int64)

// ProgressReporter renders download progress for the user. Done follows a
// finished download and Abort a failed one.
type ProgressReporter interface {
	Update(received, total int64)
	Done()
	Abort()
}
