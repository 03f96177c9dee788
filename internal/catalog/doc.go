// Package catalog defines the resolved font request consumed by the pipeline.
//
// Deciding which variants, subsets and URLs to request happens upstream; this
// package only models the result and loads it from YAML or JSON files:
//
//	font_id: roboto
//	version: v30
//	subsets: [latin]
//	variants:
//	  - id: regular
//	    subsets: [latin]
//	    urls:
//	      - url: https://fonts.example/roboto-regular.woff2
//	        format: woff2
package catalog
