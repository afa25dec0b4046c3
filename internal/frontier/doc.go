/*
Package frontier holds admitted work until a worker takes it.

Frontier Responsibilities
- Order work by priority, FIFO among equal priorities
- Deduplicate discovered URLs
- Knows nothing about:
	- fetching
	- caching
	- enhancement

It is a data structure module, not a pipeline executor.
*/
package frontier
