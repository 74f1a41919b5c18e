package workload

import (
	"math"

	"github.com/iti/rngstream"
)

// UniformPattern spreads requests evenly over all devices and addresses.
type UniformPattern struct {
	rng        *rngstream.RngStream
	numDevices int
}

// NewUniformPattern creates a uniform random pattern. The name seeds the
// random stream.
func NewUniformPattern(name string, numDevices int) *UniformPattern {
	return &UniformPattern{
		rng:        rngstream.New(name),
		numDevices: numDevices,
	}
}

// Pick returns a uniformly random device and address.
func (p *UniformPattern) Pick() (int, uint64) {
	device := p.rng.RandInt(0, p.numDevices-1)
	address := uint64(p.rng.RandU01() * float64(AddressSpace))

	return device, address
}

// HotspotPattern concentrates a fraction of the traffic on a single hot
// device and spreads the rest uniformly over the others.
type HotspotPattern struct {
	rng         *rngstream.RngStream
	numDevices  int
	hotDevice   int
	hotFraction float64
}

// NewHotspotPattern creates a hotspot pattern. hotFraction is the
// probability that a request targets the hot device.
func NewHotspotPattern(
	name string,
	numDevices int,
	hotDevice int,
	hotFraction float64,
) *HotspotPattern {
	return &HotspotPattern{
		rng:         rngstream.New(name),
		numDevices:  numDevices,
		hotDevice:   hotDevice,
		hotFraction: hotFraction,
	}
}

// Pick returns the hot device with probability hotFraction, otherwise one of
// the remaining devices uniformly.
func (p *HotspotPattern) Pick() (int, uint64) {
	address := uint64(p.rng.RandU01() * float64(AddressSpace))

	if p.numDevices == 1 || p.rng.RandU01() < p.hotFraction {
		return p.hotDevice, address
	}

	device := p.rng.RandInt(0, p.numDevices-2)
	if device >= p.hotDevice {
		device++
	}

	return device, address
}

// ZipfianPattern skews requests so that low-numbered devices receive most of
// the traffic, following a power law. Addresses within a device follow the
// same law over fixed-size pages, modeling a hot working set.
type ZipfianPattern struct {
	rng       *rngstream.RngStream
	deviceCDF []float64
	pageCDF   []float64
	pageSize  uint64
}

const zipfianNumPages = 1000

// NewZipfianPattern creates a Zipfian pattern. alpha is the exponent of the
// power law; larger values skew harder toward rank one.
func NewZipfianPattern(
	name string,
	numDevices int,
	alpha float64,
) *ZipfianPattern {
	return &ZipfianPattern{
		rng:       rngstream.New(name),
		deviceCDF: zipfCDF(numDevices, alpha),
		pageCDF:   zipfCDF(zipfianNumPages, alpha),
		pageSize:  AddressSpace / zipfianNumPages,
	}
}

// Pick samples a device and a page by rank popularity.
func (p *ZipfianPattern) Pick() (int, uint64) {
	device := sampleCDF(p.rng.RandU01(), p.deviceCDF)
	page := sampleCDF(p.rng.RandU01(), p.pageCDF)
	offset := uint64(p.rng.RandU01() * float64(p.pageSize))

	return device, uint64(page)*p.pageSize + offset
}

func zipfCDF(n int, alpha float64) []float64 {
	weights := make([]float64, n)
	total := 0.0
	for k := 1; k <= n; k++ {
		weights[k-1] = 1.0 / math.Pow(float64(k), alpha)
		total += weights[k-1]
	}

	cdf := make([]float64, n)
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w / total
		cdf[i] = cumulative
	}
	cdf[n-1] = 1.0

	return cdf
}

func sampleCDF(u float64, cdf []float64) int {
	for i, c := range cdf {
		if u < c {
			return i
		}
	}

	return len(cdf) - 1
}

// SequentialPattern scans one device with a fixed stride, modeling analytics
// scans. Each host scans the device matching its own index.
type SequentialPattern struct {
	device  int
	stride  uint64
	nextPos uint64
}

// NewSequentialPattern creates a sequential scan over the given device.
func NewSequentialPattern(device int, stride uint64) *SequentialPattern {
	return &SequentialPattern{device: device, stride: stride}
}

// Pick returns the next address in the scan.
func (p *SequentialPattern) Pick() (int, uint64) {
	address := p.nextPos
	p.nextPos = (p.nextPos + p.stride) % AddressSpace

	return p.device, address
}
