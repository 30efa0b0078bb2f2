// Package scheduler periodically resubmits known targets for scanning.
package scheduler
