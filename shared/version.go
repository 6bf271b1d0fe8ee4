package shared

// Reported by the edge router's info document
const ServiceVersion = "1.0.0"
