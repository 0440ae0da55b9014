// Package specfn holds the special functions used by the emittance-growth
// transforms and the space-charge builder: cylindrical and spherical Bessel
// functions, the sinc function and Carlson's symmetric elliptic integrals.
//
// Every function with a removable singularity at the origin switches to a
// truncated Taylor series below SmallArg.
package specfn
