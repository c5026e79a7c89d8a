package subscription

var ParsePaddleSubscription = paddleSubscription
