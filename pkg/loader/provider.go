package loader

import "image"

// CancelToken identifies a submission so it can be canceled later.
type CancelToken int64

// Delivery is one report from a provider about a submission.
type Delivery struct {
	// Image is the decoded image, if any.
	Image image.Image

	// Err is set when the fetch failed. It ends the submission.
	Err error

	// Degraded marks an intermediate image; a non-degraded image ends the submission.
	Degraded bool

	// Cancelled marks a report caused by Cancel. The loader ignores it.
	Cancelled bool
}

// Provider performs the actual fetch and decode.
//
// Submit starts an asynchronous fetch and returns immediately. The provider
// calls callback zero or more times with degraded images, then exactly once
// with either a non-degraded image or an error. Callbacks for one submission
// must not run concurrently; they may run on any goroutine, including the one
// calling Submit. A callback may block until the consumer is ready.
//
// Cancel is best effort. The provider may still call callback once more,
// normally with Cancelled set.
type Provider interface {
	Submit(id ResourceID, params Params, callback func(Delivery)) CancelToken
	Cancel(token CancelToken)
}

// SecondaryDegradedSupporter is implemented by providers whose support for
// a second degraded image depends on their version.
type SecondaryDegradedSupporter interface {
	SupportsSecondaryDegraded() bool
}
