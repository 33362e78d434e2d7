package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated is a Prometheus counter for tracking the total number of products updated.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "The total number of products updated",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// ProductIDFallbacks counts identifiers derived from the clock because the sequence could not be read.
	ProductIDFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_id_fallbacks_total",
		Help: "The total number of product ids generated from the wall clock",
	})

	// ImagesStored counts images written to the object store.
	ImagesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_images_stored_total",
		Help: "The total number of product images stored",
	})

	// ImagesRejected counts uploads rejected by validation.
	ImagesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_images_rejected_total",
		Help: "The total number of product image uploads rejected",
	})

	// ImageRemoveFailures counts image deletions that failed and left an orphaned object.
	ImageRemoveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_image_remove_failures_total",
		Help: "The total number of failed product image removals",
	})

	// ListingCacheRequests counts listing cache lookups by result.
	ListingCacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_cache_requests_total",
		Help: "The total number of listing cache lookups",
	}, []string{"result"})
)
