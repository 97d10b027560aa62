package fetcher

var ClassifyUserError = classifyUserError
