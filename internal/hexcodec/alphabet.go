package hexcodec

// Alphabet is the standard Base64 symbol table indexed by sextet value.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Pad fills the trailing symbols of a short final group.
const Pad = '='
