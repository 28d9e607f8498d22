package internal

// Version is the current flashpix release.
const Version = "0.3.0"
